package cliflags

import "testing"

func TestParseManual(t *testing.T) {
	m, a, err := Parse([]string{"--phase=3", "--start=0", "--end=54054000"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a != nil {
		t.Fatalf("automatic should be nil")
	}
	if m.Phase != 3 || m.Start != 0 || m.End != 54054000 {
		t.Fatalf("manual = %+v", m)
	}
}

func TestParseAutomaticDefaults(t *testing.T) {
	m, a, err := Parse([]string{"--phase=1", "--user=alice", "--machine=box1"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m != nil {
		t.Fatalf("manual should be nil")
	}
	if a.Phase != 1 || a.User != "alice" || a.Machine != "box1" {
		t.Fatalf("automatic = %+v", a)
	}
	if a.Host != DefaultHost || a.Port != DefaultPort {
		t.Fatalf("defaults not applied: %+v", a)
	}
}

func TestParseAutomaticExplicitHostPort(t *testing.T) {
	_, a, err := Parse([]string{"--phase=1", "--user=alice", "--machine=box1", "--host=example.com", "--port=9000"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a.Host != "example.com" || a.Port != 9000 {
		t.Fatalf("automatic = %+v", a)
	}
}

func TestParseRejectsBothGroups(t *testing.T) {
	_, _, err := Parse([]string{"--phase=1", "--start=0", "--end=1", "--user=alice", "--machine=box1"})
	if err == nil {
		t.Fatalf("expected error for mixing manual and automatic flags")
	}
}

func TestParseRejectsNeitherGroup(t *testing.T) {
	_, _, err := Parse([]string{"--phase=1"})
	if err == nil {
		t.Fatalf("expected error when no group is fully supplied")
	}
}

func TestParseRejectsMissingRequiredFlag(t *testing.T) {
	_, _, err := Parse([]string{"--start=0", "--end=1"})
	if err == nil {
		t.Fatalf("expected error for missing --phase")
	}
}

func TestParseRejectsDuplicateFlag(t *testing.T) {
	_, _, err := Parse([]string{"--phase=1", "--phase=2", "--start=0", "--end=1"})
	if err == nil {
		t.Fatalf("expected error for duplicate --phase")
	}
}

func TestParseRejectsPositionalArgs(t *testing.T) {
	_, _, err := Parse([]string{"--phase=1", "--start=0", "--end=1", "extra"})
	if err == nil {
		t.Fatalf("expected error for leftover positional argument")
	}
}

func TestParseRejectsMalformedFlag(t *testing.T) {
	_, _, err := Parse([]string{"--phase"})
	if err == nil {
		t.Fatalf("expected error for flag missing =value")
	}
}

func TestParseRejectsBadEndRange(t *testing.T) {
	_, _, err := Parse([]string{"--phase=1", "--start=10", "--end=5"})
	if err == nil {
		t.Fatalf("expected error when --end <= --start")
	}
}
