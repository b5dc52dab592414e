package document

import (
	"errors"
	"testing"
)

func TestExtractPages_NotPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"plain text", []byte("just some text")},
		{"zip header", []byte{'P', 'K', 3, 4, 0, 0}},
		{"truncated header", []byte("%PD")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractPages(tt.data)
			if !errors.Is(err, ErrNotPDF) {
				t.Fatalf("ExtractPages(%q) error = %v, want ErrNotPDF", tt.data, err)
			}
		})
	}
}

func TestExtractPages_CorruptPDF(t *testing.T) {
	// Valid header but garbage body: reader construction must fail,
	// and the failure must not be ErrNotPDF.
	data := []byte("%PDF-1.4\nthis is not a real xref table")

	_, err := ExtractPages(data)
	if err == nil {
		t.Fatal("ExtractPages on corrupt PDF should fail")
	}
	if errors.Is(err, ErrNotPDF) {
		t.Fatalf("corrupt PDF with valid header reported as ErrNotPDF: %v", err)
	}
}

func TestIsPDF(t *testing.T) {
	if !isPDF([]byte("%PDF-1.7 rest of file")) {
		t.Error("valid header not recognized")
	}
	if isPDF([]byte("PDF-1.7")) {
		t.Error("missing %% accepted")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   \n\t  ", ""},
		{"Revenue  was\n$10M", "Revenue was $10M"},
		{"a b", "a b"},
		{" leading and trailing ", "leading and trailing"},
	}

	for _, tt := range tests {
		if got := collapseWhitespace(tt.in); got != tt.want {
			t.Errorf("collapseWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
