package nvof

import "testing"

func TestOutputDims(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		grid          uint32
		wantW, wantH  uint32
	}{
		{"1080p 4px grid", 1920, 1080, 4, 480, 270},
		{"1080p 1px grid", 1920, 1080, 1, 1920, 1080},
		{"partial blocks round up", 1921, 1081, 4, 481, 271},
		{"2px grid", 640, 480, 2, 320, 240},
		{"zero grid treated as dense", 64, 48, 0, 64, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := OutputDims(tt.width, tt.height, tt.grid)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("OutputDims(%d, %d, %d) = %dx%d, want %dx%d",
					tt.width, tt.height, tt.grid, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}
