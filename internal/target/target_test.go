package target

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		inName    string
		inObj     string
		want      Spec
		wantErr   bool
		wantEmpty bool
	}{
		{"defaults objective", "Nvidia", "", Spec{Name: "Nvidia", Objective: GeneralAnalysis}, false, false},
		{"trims name", "  Tesla \n", "Find Weaknesses", Spec{Name: "Tesla", Objective: FindWeaknesses}, false, false},
		{"objective case-insensitive", "AMD", "product pricing", Spec{Name: "AMD", Objective: ProductPricing}, false, false},
		{"leadership", "Acme", "Leadership Scandal", Spec{Name: "Acme", Objective: LeadershipScandal}, false, false},
		{"empty name", "", "General Analysis", Spec{}, true, true},
		{"whitespace name", "   ", "", Spec{}, true, true},
		{"unknown objective", "Nvidia", "Hostile Takeover", Spec{}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.inName, tt.inObj)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() err = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrEmptyName) != tt.wantEmpty {
				t.Errorf("errors.Is(err, ErrEmptyName) = %v, want %v", !tt.wantEmpty, tt.wantEmpty)
			}
			if got != tt.want {
				t.Errorf("New() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSpecValidate_BadObjective(t *testing.T) {
	s := Spec{Name: "Nvidia", Objective: "Everything"}
	if err := s.Validate(); err == nil {
		t.Error("Validate() should reject unknown objective")
	}
}

func TestObjectives(t *testing.T) {
	got := Objectives()
	want := []Objective{"General Analysis", "Find Weaknesses", "Product Pricing", "Leadership Scandal"}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Objectives()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if got[0] != DefaultObjective {
		t.Errorf("first objective should be the default")
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Nvidia", "Stratagem_Nvidia_Report.md"},
		{"Procter & Gamble", "Stratagem_Procter & Gamble_Report.md"},
		{"AT/T", "Stratagem_AT_T_Report.md"},
		{`..\evil`, "Stratagem_.._evil_Report.md"},
		{"bad\nname", "Stratagem_bad_name_Report.md"},
		{"Société Générale", "Stratagem_Société Générale_Report.md"},
	}
	for _, tt := range tests {
		if got := ExportFilename(tt.name); got != tt.want {
			t.Errorf("ExportFilename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
	if got := (Spec{Name: "Nvidia"}).ExportFilename(); got != "Stratagem_Nvidia_Report.md" {
		t.Errorf("Spec.ExportFilename() = %q", got)
	}
}
