package deps_test

import (
	"testing"

	"reelsmith/internal/deps"
	"reelsmith/internal/testsupport"
)

func TestCheckBinariesReportsAvailability(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses", len(statuses))
	}
	for _, status := range statuses {
		if !status.Available {
			t.Fatalf("%s should be available via stub: %+v", status.Name, status)
		}
	}
	if missing := deps.MissingRequired(statuses); len(missing) != 0 {
		t.Fatalf("unexpected missing deps: %v", missing)
	}
}

func TestCheckBinariesMissing(t *testing.T) {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "Ghost", Command: "definitely-not-a-real-binary-xyz"},
		{Name: "Blank", Command: "  "},
	})
	if statuses[0].Available || statuses[1].Available {
		t.Fatalf("expected unavailable statuses: %+v", statuses)
	}
	if statuses[1].Detail != "command not configured" {
		t.Fatalf("detail = %q", statuses[1].Detail)
	}
	missing := deps.MissingRequired(statuses)
	if len(missing) != 2 {
		t.Fatalf("missing = %v", missing)
	}
}
