package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldDate       = "date"
	FieldAmountYen  = "amount_yen"
	FieldCategory   = "category"
	FieldMemo       = "memo"
	FieldFlowType   = "flow_type"
	FieldAccount    = "account"
	FieldPosition   = "position"
	FieldSender     = "sender"
	FieldSubject    = "subject"
	FieldMessageID  = "message_id"
	FieldQuery      = "query"
	FieldWritten    = "written"
	FieldSkipped    = "skipped"
	FieldBudget     = "budget"
	FieldMonthKey   = "month_key"
	FieldAlertKind  = "alert_kind"
	FieldStatusCode = "status_code"
	FieldPath       = "path"
	FieldMethod     = "method"
)

// Components defines standard component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentParser   = "parser"
	ComponentResolver = "resolver"
	ComponentIngest   = "ingest"
	ComponentLedger   = "ledger"
	ComponentSheets   = "sheets"
	ComponentStorage  = "storage"
	ComponentMail     = "mail"
	ComponentNotify   = "notify"
	ComponentAdvisor  = "advisor"
	ComponentAlert    = "alert"
	ComponentFixed    = "fixed"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
)

// Operations defines standard operation names.
const (
	OpAppend  = "append"
	OpRead    = "read"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpParse   = "parse"
	OpResolve = "resolve"
	OpSearch  = "search"
	OpPush    = "push"
	OpReply   = "reply"
	OpAnalyze = "analyze"
	OpSync    = "sync"
	OpStartup = "startup"
)
