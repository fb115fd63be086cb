package normalizer

import (
	"testing"
)

func TestNormalizeOS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"win", "windows"},
		{"WINDOWS", "windows"},
		{"Win64", "windows"},
		{"mac", "mac"},
		{"MacOS", "mac"},
		{"linux", "linux"},
		{"SteamOS + Linux", "linux"},
		{"FreeBSD", "freebsd"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeOS(tt.in); got != tt.want {
			t.Errorf("NormalizeOS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFieldMapper_Map(t *testing.T) {
	m := NewFieldMapper(DefaultFieldRules())

	tests := []struct {
		label  string
		want   string
		wantOK bool
	}{
		{"OS", FieldOS, true},
		{"OS *", FieldOS, true},
		{"Operating System", FieldOS, true},
		{"Processor", FieldProcessor, true},
		{"CPU", FieldProcessor, true},
		{"Memory", FieldMemory, true},
		{"RAM", FieldMemory, true},
		{"Graphics", FieldGraphics, true},
		{"Video Card", FieldGraphics, true},
		{"DirectX", FieldDirectX, true},
		{"DirectX®", FieldDirectX, true},
		{"Network", FieldNetwork, true},
		{"Internet Connection", FieldNetwork, true},
		{"Storage", FieldStorage, true},
		{"Hard Drive:", FieldStorage, true},
		{"hard disk space", FieldStorage, true},
		{"Available Space", FieldStorage, true},
		{"Sound Card", FieldSoundCard, true},
		{"Audio", FieldSoundCard, true},
		{"Additional Notes", FieldAdditionalNotes, true},
		{"Note", FieldAdditionalNotes, true},
		{"VR Support", "vr_support", true},
		{"Türkçe Destek", "türkçe_destek", true},
		{"!!!", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := m.Map(tt.label)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Map(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFieldMapper_Canonical(t *testing.T) {
	m := NewFieldMapper(DefaultFieldRules())

	for _, label := range []string{"Memory", "Additional Notes", "Hard Drive", "DirectX®", "OS *"} {
		if _, ok := m.Canonical(label); !ok {
			t.Errorf("Canonical(%q) should match", label)
		}
	}

	for _, label := range []string{"Ryzen Memory", "Card", "Compatible Additional Notes", "Drive"} {
		if key, ok := m.Canonical(label); ok {
			t.Errorf("Canonical(%q) = %q, want no match", label, key)
		}
	}
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Requires   8 GB RAM  ", "8 GB RAM"},
		{"requires a 64-bit processor", "a 64-bit processor"},
		{"REQUIRE DirectX 11", "DirectX 11"},
		{"Requires", "Requires"},
		{"Windows\n\t10", "Windows 10"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanValue(tt.in); got != tt.want {
			t.Errorf("CleanValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProcessor_Process(t *testing.T) {
	p := NewProcessor()

	key, value, ok := p.Process("Memory", " 8 GB  RAM ")
	if !ok || key != FieldMemory || value != "8 GB RAM" {
		t.Errorf("Process(Memory) = (%q, %q, %v)", key, value, ok)
	}

	if _, _, ok := p.Process("Memory", "   "); ok {
		t.Error("Process should reject an empty value")
	}

	if _, _, ok := p.Process("---", "x"); ok {
		t.Error("Process should reject an unmappable label")
	}
}
