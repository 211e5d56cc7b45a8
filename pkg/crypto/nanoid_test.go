package crypto

import (
	"strings"
	"sync"
	"testing"
)

func TestNewNanoID(t *testing.T) {
	tests := []struct {
		name         string
		alphabet     string
		size         int
		wantErr      error
		wantAlphabet string
		wantSize     int
	}{
		{name: "defaults", alphabet: "", size: 0, wantAlphabet: defaultAlphabet, wantSize: defaultSize},
		{name: "custom alphabet", alphabet: "ABCDEFGH", size: 10, wantAlphabet: "ABCDEFGH", wantSize: 10},
		{name: "negative size uses default", alphabet: "", size: -3, wantAlphabet: defaultAlphabet, wantSize: defaultSize},
		{name: "alphabet too long", alphabet: strings.Repeat("a", 256), wantErr: ErrAlphabetTooLong},
		{name: "alphabet too short", alphabet: "abc", wantErr: ErrAlphabetTooShort},
		{name: "non ascii alphabet", alphabet: "abcdefgé", wantErr: ErrAlphabetNotASCII},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			gen, err := NewNanoID(test.alphabet, test.size)

			// Assert
			if err != test.wantErr {
				t.Fatalf("NewNanoID() error = %v, want %v", err, test.wantErr)
			}
			if test.wantErr != nil {
				return
			}
			if gen.alphabet != test.wantAlphabet {
				t.Errorf("alphabet = %q, want %q", gen.alphabet, test.wantAlphabet)
			}
			if gen.size != test.wantSize {
				t.Errorf("size = %d, want %d", gen.size, test.wantSize)
			}
		})
	}
}

func TestNanoIDGenerator_GetMask(t *testing.T) {
	tests := []struct {
		alphabetLen int
		wantMask    int
	}{
		{alphabetLen: 8, wantMask: 15},
		{alphabetLen: 16, wantMask: 31},
		{alphabetLen: 33, wantMask: 63},
		{alphabetLen: 64, wantMask: 127},
		{alphabetLen: 255, wantMask: 255},
	}

	for _, test := range tests {
		if got := getMask(test.alphabetLen); got != test.wantMask {
			t.Errorf("getMask(%d) = %d, want %d", test.alphabetLen, got, test.wantMask)
		}
	}
}

func TestNanoIDGenerator_Generate(t *testing.T) {
	// Arrange
	gen, err := NewNanoID("", 0)
	if err != nil {
		t.Fatalf("NewNanoID() error = %v", err)
	}

	// Act
	id, err := gen.Generate()

	// Assert
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(id) != defaultSize {
		t.Errorf("len(id) = %d, want %d", len(id), defaultSize)
	}
	for _, r := range id {
		if !strings.ContainsRune(defaultAlphabet, r) {
			t.Errorf("id %q contains %q outside the alphabet", id, r)
		}
	}
}

func TestNanoIDGenerator_GenerateConcurrentUnique(t *testing.T) {
	// Arrange
	gen, _ := NewNanoID("", 0)
	const goroutines = 200
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[string]bool, goroutines)
	)

	// Act
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := gen.Generate()
			if err != nil {
				t.Errorf("Generate() error = %v", err)
				return
			}
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Assert
	if len(seen) != goroutines {
		t.Errorf("expected %d unique ids, got %d", goroutines, len(seen))
	}
}
