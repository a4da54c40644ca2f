package webcam

import (
	"image"
	"testing"
)

func TestFill_Allocates(t *testing.T) {
	data := make([]byte, 4*3*2)
	data[0] = 7
	buf := fill(nil, 3, 2, data)
	if buf.Rect != image.Rect(0, 0, 3, 2) {
		t.Fatalf("Rect = %v", buf.Rect)
	}
	if buf.Pix[0] != 7 {
		t.Errorf("Pix[0] = %d, want 7", buf.Pix[0])
	}
}

func TestFill_ReusesMatchingBuffer(t *testing.T) {
	buf := image.NewRGBA(image.Rect(0, 0, 3, 2))
	got := fill(buf, 3, 2, make([]byte, 24))
	if got != buf {
		t.Error("expected buffer reuse")
	}
	if fill(buf, 4, 2, make([]byte, 32)) == buf {
		t.Error("expected reallocation on size change")
	}
}
