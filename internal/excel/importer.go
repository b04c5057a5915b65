package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/chirpolly/internal/content"
	"github.com/example/chirpolly/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath              string // Path to the Excel or CSV file
	LanguageColumn        string // Column with the language code
	LevelColumn           string // Column with the module level (A1, A2...)
	ThemeColumn           string // Column with the module theme
	UnitIDColumn          string // Column with the unit ID
	UnitTitleColumn       string // Column with the unit title
	WordColumn            string // Column with the word
	TransliterationColumn string // Column with the transliteration
	MeaningColumn         string // Column with the meaning
	AudioPromptColumn     string // Column with the pronunciation prompt
	SheetName             string // Name of the sheet to import; empty means the first sheet
	StartRow              int    // The row to start importing from (1-based index)
	DefaultLanguage       string // Used when the language cell is empty
	DefaultLevel          string // Used when the level cell is empty
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		LanguageColumn:        "A",
		LevelColumn:           "B",
		ThemeColumn:           "C",
		UnitIDColumn:          "D",
		UnitTitleColumn:       "E",
		WordColumn:            "F",
		TransliterationColumn: "G",
		MeaningColumn:         "H",
		AudioPromptColumn:     "I",
		StartRow:              2, // By default, start from the second row (skip header)
		DefaultLevel:          "A1",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// ImportCatalog reads words from an Excel or CSV file into catalog.
// Bad rows are reported in the result and do not stop the import.
func ImportCatalog(config ImportConfig, catalog *content.Catalog) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++
		if err := processRow(row, config, catalog, result); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	if err := catalog.Validate(); err != nil {
		return result, err
	}
	return result, nil
}

func readExcel(config ImportConfig) ([][]string, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// processRow processes a single row from either source
func processRow(row []string, config ImportConfig, catalog *content.Catalog, result *ImportResult) error {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	language := strings.ToLower(cell(config.LanguageColumn))
	if language == "" {
		language = config.DefaultLanguage
	}
	level := cell(config.LevelColumn)
	if level == "" {
		level = config.DefaultLevel
	}
	unitID := cell(config.UnitIDColumn)
	word := models.Word{
		Word:            cleanWord(cell(config.WordColumn)),
		Transliteration: cell(config.TransliterationColumn),
		Meaning:         cleanWord(cell(config.MeaningColumn)),
		AudioPrompt:     cell(config.AudioPromptColumn),
	}

	switch {
	case language == "":
		return fmt.Errorf("language cannot be empty")
	case unitID == "":
		return fmt.Errorf("unit id cannot be empty")
	case word.Word == "":
		return fmt.Errorf("word cannot be empty")
	case word.Meaning == "":
		return fmt.Errorf("meaning cannot be empty")
	}

	if catalog.AddWord(language, level, cell(config.ThemeColumn), unitID, cell(config.UnitTitleColumn), word) {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

// cleanWord removes extra information in parentheses, e.g. "go (went, gone)"
func cleanWord(word string) string {
	indexOpenParen := strings.Index(word, "(")
	if indexOpenParen > 0 {
		return strings.TrimSpace(word[:indexOpenParen])
	}
	return strings.TrimSpace(word)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
