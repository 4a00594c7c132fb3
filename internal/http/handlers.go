package http

import (
	"errors"
	"net/http"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/log"
)

// recordJSON is the wire form of a ledger entry.
type recordJSON struct {
	Position int    `json:"position"`
	Date     string `json:"date"`
	Amount   int64  `json:"amount"`
	Category string `json:"category"`
	Memo     string `json:"memo"`
	Flow     string `json:"flow"`
	Method   string `json:"method"`
	Account  string `json:"account"`
	Fixed    bool   `json:"fixed"`
}

func toRecordJSON(e core.LedgerEntry) recordJSON {
	return recordJSON{
		Position: e.Position,
		Date:     e.Date().String(),
		Amount:   e.Amount.Yen,
		Category: e.Category,
		Memo:     e.Memo,
		Flow:     string(e.Flow),
		Method:   string(e.Method),
		Account:  e.Account,
		Fixed:    e.Fixed,
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	set, err := s.settings.Settings(r.Context())
	if err != nil {
		s.serverError(w, "read settings", err)
		return
	}
	entries, err := s.store.ReadAll(r.Context())
	if err != nil {
		s.serverError(w, "read ledger", err)
		return
	}

	snap := core.AggregateMonth(entries, set.Accounts, year, month)
	categories := core.MergeCategorySlots(snap.Categories, set.Categories)

	recent := make([]recordJSON, 0, len(snap.Recent))
	for _, e := range snap.Recent {
		recent = append(recent, toRecordJSON(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":            snap.Year,
		"month":           snap.Month,
		"carryOver":       snap.CarryOver,
		"totalIncome":     snap.TotalIncome,
		"totalExpense":    snap.TotalExpense,
		"budget":          set.Budget,
		"categories":      categories,
		"recent":          recent,
		"accountBalances": snap.AccountBalances,
		"aiMessage":       set.AIMessage,
	})
}

func (s *Server) handleSankey(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	set, err := s.settings.Settings(r.Context())
	if err != nil {
		s.serverError(w, "read settings", err)
		return
	}
	entries, err := s.store.ReadAll(r.Context())
	if err != nil {
		s.serverError(w, "read ledger", err)
		return
	}
	snap := core.AggregateMonth(entries, set.Accounts, year, month)
	writeJSON(w, http.StatusOK, core.BuildFlowGraph(snap, set.Budget))
}

func (s *Server) handleYearly(w http.ResponseWriter, r *http.Request) {
	year, _ := parseYearMonth(r)
	entries, err := s.store.ReadAll(r.Context())
	if err != nil {
		s.serverError(w, "read ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":   year,
		"months": core.AggregateYear(entries, year),
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	entries, err := s.store.ReadAll(r.Context())
	if err != nil {
		s.serverError(w, "read ledger", err)
		return
	}
	records := make([]recordJSON, 0)
	for _, e := range entries {
		if e.At.Year() == year && int(e.At.Month()) == month {
			records = append(records, toRecordJSON(e))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position int    `json:"position"`
		Category string `json:"category"`
		Memo     string `json:"memo"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Position < 1 {
		writeError(w, http.StatusBadRequest, "position must be positive")
		return
	}
	patch := ledger.EntryPatch{}
	if req.Category != "" {
		patch.Category = &req.Category
	}
	if req.Memo != "" {
		patch.Memo = &req.Memo
	}
	err := s.store.Update(r.Context(), req.Position, patch)
	if errors.Is(err, ledger.ErrPositionOutOfRange) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		s.serverError(w, "update record", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (s *Server) handleDeleteMonth(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	deleted, err := s.store.DeleteMonth(r.Context(), year, month)
	if err != nil {
		s.serverError(w, "delete month", err)
		return
	}
	s.logger.Info("month deleted",
		log.FieldYear, year, log.FieldMonth, month, "deleted", deleted)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date     string `json:"date"`
		Amount   int64  `json:"amount"`
		Category string `json:"category"`
		Memo     string `json:"memo"`
		Flow     string `json:"flow"`
		Account  string `json:"account"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	flow := core.FlowType(req.Flow)
	if flow == "" {
		flow = core.FlowExpense
	}

	entry := core.LedgerEntry{
		At:       date.Time,
		Amount:   core.Money{Yen: req.Amount},
		Category: req.Category,
		Memo:     req.Memo,
		Flow:     flow,
		Method:   core.MethodDashboard,
		Account:  req.Account,
	}
	position, err := s.store.Append(r.Context(), entry)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry.Position = position
	if s.publisher != nil {
		if perr := s.publisher.PublishEntrySync(r.Context(), position); perr != nil {
			s.logger.Warn("entry sync publish failed",
				log.FieldPosition, position, log.FieldError, perr.Error())
		}
	}
	writeJSON(w, http.StatusCreated, toRecordJSON(entry.Normalized()))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	set, err := s.settings.Settings(r.Context())
	if err != nil {
		s.serverError(w, "read settings", err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var set ledger.Settings
	if err := readJSON(r, &set); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The LINE user id is captured from the webhook, never set from the
	// dashboard; keep the stored value.
	current, err := s.settings.Settings(r.Context())
	if err != nil {
		s.serverError(w, "read settings", err)
		return
	}
	set.LineUserID = current.LineUserID
	set.AIMessage = current.AIMessage

	if err := s.settings.SaveSettings(r.Context(), set); err != nil {
		s.serverError(w, "save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	set, err := s.settings.Settings(r.Context())
	if err != nil {
		s.serverError(w, "read settings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": set.AIMessage})
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", log.FieldError, err.Error())
	msg := "internal error"
	if strings.Contains(err.Error(), "not configured") {
		msg = "store not configured"
	}
	writeError(w, http.StatusInternalServerError, msg)
}
