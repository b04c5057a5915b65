package spaced_repetition

import (
	"testing"

	"github.com/google/uuid"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hola", "hola"},
		{"  buenos   días ", "buenos días"},
		{"é", "é"},
		{"STRASSE", "strasse"},
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestItemID(t *testing.T) {
	id := ItemID("es", "Hola")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("ItemID is not a UUID: %q", id)
	}
	for _, spelling := range []string{"hola", " HOLA ", "hoLa"} {
		if got := ItemID("ES", spelling); got != id {
			t.Errorf("ItemID(ES, %q) = %s, want %s", spelling, got, id)
		}
	}
	if ItemID("pt", "hola") == id {
		t.Error("same word in another language should get another ID")
	}
	if ItemID("fr", "café") != ItemID("fr", "café") {
		t.Error("composed and decomposed spellings should share an ID")
	}
}
