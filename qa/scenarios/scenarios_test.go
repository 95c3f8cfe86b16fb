package scenarios

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString(":"); err != nil {
		t.Fatal(err)
	}
	_ = tmp.Close()
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestInputsRejectsOffGridPeak(t *testing.T) {
	sc := &Scenario{Year: 2021, DT: 1, Peaks: []PeakDef{{At: "2021-07-01 17:30", KW: 1}}}
	if _, err := sc.Inputs(); err == nil {
		t.Fatal("expected error for off-grid peak")
	}
}
