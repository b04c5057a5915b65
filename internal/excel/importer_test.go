package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/example/chirpolly/internal/content"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "words.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestImportExcel(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"language", "level", "theme", "unit", "title", "word", "transliteration", "meaning", "audio"},
		{"ES", "A1", "First steps", "a1-greetings", "Greetings", "hola", "o-la", "hello", ""},
		{"es", "A1", "First steps", "a1-greetings", "", "adiós", "", "goodbye (formal)", "slowly"},
		{"es", "", "First steps", "a1-greetings", "", "", "", "missing word", ""},
		{},
		{"es", "A1", "First steps", "a1-greetings", "", "Hola", "", "hi", ""},
		{"es", "A2", "Travel", "a2-station", "Station", "tren", "", "train", ""},
	})

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	catalog := content.New()
	result, err := ImportCatalog(cfg, catalog)
	if err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}
	if result.TotalProcessed != 5 || result.Created != 3 || result.Updated != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v", result.Errors)
	}

	unit, err := catalog.Unit("es", "a1-greetings")
	if err != nil {
		t.Fatalf("Unit: %v", err)
	}
	if unit.Title != "Greetings" || len(unit.Words) != 2 {
		t.Fatalf("unit = %+v", unit)
	}
	if unit.Words[0].Meaning != "hi" || unit.Words[1].Meaning != "goodbye" || unit.Words[1].AudioPrompt != "slowly" {
		t.Errorf("words = %+v", unit.Words)
	}
	modules, _ := catalog.Modules("es")
	if len(modules) != 2 || modules[1].Level != "A2" {
		t.Errorf("modules = %+v", modules)
	}
}

func TestImportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.csv")
	body := "language,level,theme,unit,title,word,transliteration,meaning\n" +
		",A1,Basics,a1-polite,Politeness,merci,,thank you\n" +
		",A1,Basics,a1-polite,,s'il vous plaît,,please\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.DefaultLanguage = "fr"
	catalog := content.New()
	result, err := ImportCatalog(cfg, catalog)
	if err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}
	if result.Created != 2 || len(result.Errors) != 0 {
		t.Errorf("result = %+v", result)
	}
	unit, err := catalog.Unit("fr", "a1-polite")
	if err != nil || len(unit.Words) != 2 {
		t.Errorf("unit = %+v, %v", unit, err)
	}
}

func TestImportMissingFile(t *testing.T) {
	cfg := DefaultImportConfig()
	cfg.FilePath = filepath.Join(t.TempDir(), "nope.xlsx")
	if _, err := ImportCatalog(cfg, content.New()); err == nil {
		t.Error("expected open error")
	}
}

func TestColumnToIndex(t *testing.T) {
	tests := map[string]int{"A": 0, "b": 1, "Z": 25, "AA": 26, "AB": 27, "1": -1}
	for in, want := range tests {
		if got := columnToIndex(in); got != want {
			t.Errorf("columnToIndex(%q) = %d, want %d", in, got, want)
		}
	}
}
