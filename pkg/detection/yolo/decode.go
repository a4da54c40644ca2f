package yolo

import "image"

type candidate struct {
	box     image.Rectangle
	score   float32
	classID int
}

// decode reads an attribute-major prediction matrix of attrs rows by n
// columns: rows 0-3 hold cx, cy, w, h and the remaining rows hold one
// score per class. Candidates whose best class score passes the threshold
// are kept. sx and sy scale model-input pixels to source image pixels.
func decode(data []float32, attrs, n int, cfg Config, sx, sy float32) []candidate {
	if n <= 0 || attrs <= 4 || len(data) < attrs*n {
		return nil
	}
	at := func(attr, i int) float32 { return data[attr*n+i] }

	var out []candidate
	for i := 0; i < n; i++ {
		best, classID := float32(0), 0
		for c := 0; c < attrs-4; c++ {
			if score := at(4+c, i); score > best {
				best, classID = score, c
			}
		}
		if best < cfg.ConfidenceThresh {
			continue
		}

		cx, cy := at(0, i), at(1, i)
		hw, hh := at(2, i)/2, at(3, i)/2
		out = append(out, candidate{
			box: image.Rect(
				int((cx-hw)*sx),
				int((cy-hh)*sy),
				int((cx+hw)*sx),
				int((cy+hh)*sy),
			),
			score:   best,
			classID: classID,
		})
	}
	return out
}
