package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
)

func TestParseEntryDate(t *testing.T) {
	d, err := models.ParseEntryDate("07/06/2024")
	if err != nil {
		t.Fatalf("ParseEntryDate: %v", err)
	}
	if d.Day() != 7 || d.Month() != time.June || d.Year() != 2024 {
		t.Errorf("parsed %v, want 7 June 2024", d)
	}

	// Day-first layout: 13/06 must not be read as month 13.
	if _, err := models.ParseEntryDate("13/06/2024"); err != nil {
		t.Errorf("day-first date rejected: %v", err)
	}
	for _, bad := range []string{"2024-06-07", "07-06-2024", "garbage"} {
		if _, err := models.ParseEntryDate(bad); err == nil {
			t.Errorf("ParseEntryDate(%q) accepted, want error", bad)
		}
	}
}

func TestEntryDateJSON(t *testing.T) {
	var e struct {
		Date models.EntryDate `json:"date"`
	}
	if err := json.Unmarshal([]byte(`{"date":"07/06/2024"}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"date":"07/06/2024"}` {
		t.Errorf("round trip = %s", out)
	}

	// Zero dates marshal as the empty string, matching the stored shape.
	e.Date = models.EntryDate{}
	out, _ = json.Marshal(e)
	if string(out) != `{"date":""}` {
		t.Errorf("zero date = %s, want empty string", out)
	}
}

func TestProjectDateUsesDashLayout(t *testing.T) {
	d, err := models.ParseProjectDate("01-02-2024")
	if err != nil {
		t.Fatalf("ParseProjectDate: %v", err)
	}
	if d.Day() != 1 || d.Month() != time.February {
		t.Errorf("parsed %v, want 1 February 2024", d)
	}
	// The slash layout belongs to entries, not projects.
	if _, err := models.ParseProjectDate("01/02/2024"); err == nil {
		t.Error("slash-separated project date accepted, want error")
	}
}

func TestCreatedStampLayout(t *testing.T) {
	var e struct {
		Created models.CreatedStamp `json:"created"`
	}
	if err := json.Unmarshal([]byte(`{"created":"07/06/2024 02:30 PM"}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Created.Hour() != 14 || e.Created.Minute() != 30 {
		t.Errorf("parsed %v, want 14:30", e.Created.Time)
	}
	out, _ := json.Marshal(e)
	if string(out) != `{"created":"07/06/2024 02:30 PM"}` {
		t.Errorf("round trip = %s", out)
	}
}

func TestStringListScan(t *testing.T) {
	var l models.StringList
	if err := l.Scan([]byte(`["a@example.com","b@example.com"]`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(l) != 2 || l[0] != "a@example.com" {
		t.Errorf("scanned %v", l)
	}

	if err := l.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if len(l) != 0 {
		t.Errorf("nil scan = %v, want empty", l)
	}

	v, err := models.StringList(nil).Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "[]" {
		t.Errorf("nil list value = %v, want []", v)
	}
}

func TestEntryMutable(t *testing.T) {
	e := models.TimesheetEntry{ApprovalStatus: models.StatusPending}
	if !e.Mutable() {
		t.Error("pending entry should be mutable")
	}
	for _, s := range []string{models.StatusApproved, models.StatusRejected} {
		e.ApprovalStatus = s
		if e.Mutable() {
			t.Errorf("%s entry should be immutable", s)
		}
	}
}
