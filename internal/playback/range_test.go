package playback

import (
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
		wantNil   bool
		wantErr   error
	}{
		{"no header means whole file", "", 4096, 0, 0, true, nil},
		{"full range", "bytes=0-4095", 4096, 0, 4095, false, nil},
		{"open-ended", "bytes=1024-", 4096, 1024, 4095, false, nil},
		{"suffix range", "bytes=-1024", 4096, 3072, 4095, false, nil},
		{"single byte", "bytes=0-0", 4096, 0, 0, false, nil},
		{"middle range", "bytes=512-1023", 4096, 512, 1023, false, nil},
		{"end clamped to size", "bytes=0-9999", 4096, 0, 4095, false, nil},
		{"suffix larger than file", "bytes=-9999", 512, 0, 511, false, nil},
		{"last byte open-ended", "bytes=4095-", 4096, 4095, 4095, false, nil},
		{"multi range takes first", "bytes=0-99, 200-299", 4096, 0, 99, false, nil},

		{"start at size", "bytes=4096-", 4096, 0, 0, false, ErrUnsatisfiable},
		{"fully beyond size", "bytes=5000-6000", 4096, 0, 0, false, ErrUnsatisfiable},
		{"missing bytes prefix", "0-100", 4096, 0, 0, false, ErrInvalidRange},
		{"wrong unit", "chars=0-100", 4096, 0, 0, false, ErrInvalidRange},
		{"non-numeric start", "bytes=abc-100", 4096, 0, 0, false, ErrInvalidRange},
		{"non-numeric end", "bytes=0-abc", 4096, 0, 0, false, ErrInvalidRange},
		{"zero suffix", "bytes=-0", 4096, 0, 0, false, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, tt.size)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("ParseRange() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("ParseRange() unexpected error: %v", err)
				return
			}

			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseRange() = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Error("ParseRange() = nil, want non-nil")
				return
			}

			if got.Start != tt.wantStart || got.End != tt.wantEnd {
				t.Errorf("ParseRange() = {%d, %d}, want {%d, %d}", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestRange_ContentHeaders(t *testing.T) {
	r := Range{Start: 512, End: 1023}

	if got := r.ContentLength(); got != 512 {
		t.Errorf("ContentLength() = %d, want 512", got)
	}
	if got := r.ContentRange(4096); got != "bytes 512-1023/4096" {
		t.Errorf("ContentRange() = %s, want bytes 512-1023/4096", got)
	}
}
