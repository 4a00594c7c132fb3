package google

import "testing"

func TestSettingsValueRangeLayout(t *testing.T) {
	vr := settingsValueRange(map[string]string{
		keyBudget:     "90000",
		keyLineUserID: "U1",
	})
	if len(vr.Values) != len(settingsKeyOrder) {
		t.Fatalf("rows = %d, want one per key", len(vr.Values))
	}
	for i, row := range vr.Values {
		if row[0] != settingsKeyOrder[i] {
			t.Fatalf("row %d key = %v, want %s", i, row[0], settingsKeyOrder[i])
		}
	}
	if vr.Values[0][1] != "90000" {
		t.Fatalf("budget value = %v", vr.Values[0][1])
	}
	// Keys absent from the map still get a row so the sheet layout is stable.
	if vr.Values[1][1] != "" {
		t.Fatalf("categories value = %v, want empty", vr.Values[1][1])
	}
}
