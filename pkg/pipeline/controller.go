// Package pipeline schedules per-frame detection and text extraction.
//
// The Controller admits at most one frame at a time. OnFrame runs on the
// camera's delivery goroutine and never blocks: it either copies the frame
// into a working buffer and hands it to the background worker, or drops it.
// Either way the camera buffer is released before OnFrame returns.
//
// Results travel back from the worker as messages and are applied on a
// single completion goroutine in admission order: tracker update, speech,
// overlay repaint, and finally clearing the in-flight flag.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"

	"github.com/teslashibe/go-visionaid/internal/timeutil"
	"github.com/teslashibe/go-visionaid/pkg/camera"
	"github.com/teslashibe/go-visionaid/pkg/detection"
	"github.com/teslashibe/go-visionaid/pkg/distance"
	"github.com/teslashibe/go-visionaid/pkg/geometry"
	"github.com/teslashibe/go-visionaid/pkg/ocr"
	"github.com/teslashibe/go-visionaid/pkg/speech"
	"github.com/teslashibe/go-visionaid/pkg/tracker"
)

// ErrNoRecognizer is reported when text extraction runs without an OCR backend.
var ErrNoRecognizer = errors.New("pipeline: no text recognizer configured")

// Overlay receives repaint requests.
type Overlay interface {
	Invalidate()
}

type nopOverlay struct{}

func (nopOverlay) Invalidate() {}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Frames         int64         `json:"frames"`
	Admitted       int64         `json:"admitted"`
	Dropped        int64         `json:"dropped"`
	Completed      int64         `json:"completed"`
	Failures       int64         `json:"failures"`
	Announcements  int64         `json:"announcements"`
	LastProcessing time.Duration `json:"last_processing"`
	Mode           Mode          `json:"mode"`
	InFlight       bool          `json:"in_flight"`
}

// Result describes one completed frame, for observers.
type Result struct {
	FrameTimestamp int64
	Mode           Mode
	Detections     []detection.Ranged
	Nearest        *detection.Ranged
	Text           string
	Processing     time.Duration
	Err            error
}

type task struct {
	ts          int64
	mode        Mode
	frame       *image.RGBA
	frameToCrop geometry.Transform
	cropToFrame geometry.Transform
}

// Controller is the frame pipeline.
type Controller struct {
	cfg       Config
	detector  detection.Detector
	ocr       ocr.Recognizer
	estimator *distance.Estimator
	tracker   *tracker.Tracker
	speaker   speech.Speaker
	gate      *speech.Gate
	overlay   Overlay
	clock     timeutil.Clock
	logger    *slog.Logger
	observer  func(Result)

	inFlight  atomic.Bool
	stopped   atomic.Bool
	mode      atomic.Int32
	timestamp atomic.Int64

	frames         atomic.Int64
	admitted       atomic.Int64
	dropped        atomic.Int64
	completed      atomic.Int64
	failures       atomic.Int64
	announcements  atomic.Int64
	lastProcessing atomic.Int64

	tasks   chan task
	control chan func(detection.Configurable)
	results chan Result

	// Touched only by the frame goroutine while no task is in flight.
	working     *image.RGBA
	frameW      int
	frameH      int
	frameToCrop geometry.Transform
	cropToFrame geometry.Transform

	// Owned by the worker.
	crop *image.RGBA

	debugCrop atomic.Pointer[image.RGBA]

	runOnce sync.Once
	done    chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecognizer sets the OCR backend used in text extraction mode.
func WithRecognizer(r ocr.Recognizer) Option {
	return func(c *Controller) { c.ocr = r }
}

// WithEstimator sets the distance estimator.
func WithEstimator(e *distance.Estimator) Option {
	return func(c *Controller) { c.estimator = e }
}

// WithTracker sets the tracker that receives detections.
func WithTracker(t *tracker.Tracker) Option {
	return func(c *Controller) { c.tracker = t }
}

// WithSpeaker sets the announcement sink.
func WithSpeaker(s speech.Speaker) Option {
	return func(c *Controller) { c.speaker = s }
}

// WithGate sets the speech rate limiter. Share it with other speakers of
// pipeline results so they count against the same last-speech time.
func WithGate(g *speech.Gate) Option {
	return func(c *Controller) { c.gate = g }
}

// WithOverlay sets the repaint target.
func WithOverlay(o Overlay) Option {
	return func(c *Controller) { c.overlay = o }
}

// WithClock sets the clock used for latency measurement and speech gating.
func WithClock(clock timeutil.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithObserver registers fn to receive every completed Result. It runs on
// the completion goroutine and must not block.
func WithObserver(fn func(Result)) Option {
	return func(c *Controller) { c.observer = fn }
}

// New creates a controller. The detector is required.
func New(cfg Config, detector detection.Detector, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if detector == nil {
		return nil, fmt.Errorf("pipeline: detector is required")
	}

	c := &Controller{
		cfg:      cfg,
		detector: detector,
		tasks:    make(chan task, 1),
		control:  make(chan func(detection.Configurable), 8),
		results:  make(chan Result, 1),
		crop:     image.NewRGBA(image.Rect(0, 0, cfg.InputSize, cfg.InputSize)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.clock == nil {
		c.clock = timeutil.RealClock{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracker == nil {
		c.tracker = tracker.New(tracker.DefaultConfig(), c.logger)
	}
	c.logger = c.logger.With("component", "pipeline")
	if c.estimator == nil {
		c.estimator = distance.NewEstimator(nil)
	}
	if c.speaker == nil {
		c.speaker = speech.LogSpeaker{Logger: c.logger}
	}
	if c.gate == nil {
		c.gate = speech.NewGate(c.clock)
	}
	if c.overlay == nil {
		c.overlay = nopOverlay{}
	}

	return c, nil
}

// Tracker returns the tracker fed by this controller.
func (c *Controller) Tracker() *tracker.Tracker {
	return c.tracker
}

// OnFrame offers a camera frame. It never blocks on inference and always
// releases the frame before returning.
func (c *Controller) OnFrame(frame camera.Frame) {
	ts := c.timestamp.Add(1)
	c.frames.Add(1)
	c.overlay.Invalidate()

	if c.stopped.Load() || !c.inFlight.CompareAndSwap(false, true) {
		frame.Release()
		c.dropped.Add(1)
		return
	}
	c.admitted.Add(1)

	err := c.prepare(frame)
	frame.Release()
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("frame rejected", "frame", ts, "error", err)
		c.inFlight.Store(false)
		return
	}

	t := task{
		ts:          ts,
		mode:        c.Mode(),
		frame:       c.working,
		frameToCrop: c.frameToCrop,
		cropToFrame: c.cropToFrame,
	}

	select {
	case c.tasks <- t:
	default:
		// Unreachable while the in-flight flag is honored.
		c.dropped.Add(1)
		c.inFlight.Store(false)
	}
}

// prepare copies the frame into the working buffer and refreshes the
// transforms when the frame size changes.
func (c *Controller) prepare(frame camera.Frame) error {
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Pix) < frame.Stride*(frame.Height-1)+frame.Width*4 {
		return fmt.Errorf("invalid frame %dx%d", frame.Width, frame.Height)
	}

	if frame.Width != c.frameW || frame.Height != c.frameH || c.working == nil {
		toCrop, err := geometry.Compute(frame.Width, frame.Height, c.cfg.InputSize, c.cfg.InputSize, c.cfg.Rotation, c.cfg.MaintainAspect)
		if err != nil {
			return err
		}
		toFrame, err := toCrop.Invert()
		if err != nil {
			return err
		}
		c.frameToCrop, c.cropToFrame = toCrop, toFrame
		c.frameW, c.frameH = frame.Width, frame.Height
		c.working = image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
		c.tracker.SetFrameConfiguration(frame.Width, frame.Height, c.cfg.Rotation)

		c.logger.Info("frame configuration",
			"width", frame.Width,
			"height", frame.Height,
			"crop", c.cfg.InputSize,
			"rotation", c.cfg.Rotation,
		)
	}

	rowBytes := frame.Width * 4
	for y := 0; y < frame.Height; y++ {
		src := frame.Pix[y*frame.Stride : y*frame.Stride+rowBytes]
		dst := c.working.Pix[y*c.working.Stride : y*c.working.Stride+rowBytes]
		copy(dst, src)
	}
	return nil
}

// Run starts the worker and the completion loop and blocks until ctx is
// cancelled or Close is called. An inference already running when that
// happens completes and its result is applied before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("pipeline: already running")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.worker(ctx)
	}()
	go func() {
		defer wg.Done()
		c.completions()
	}()

	select {
	case <-ctx.Done():
	case <-c.done:
	}
	c.stopped.Store(true)
	wg.Wait()

	c.logger.Info("pipeline stopped",
		"frames", c.frames.Load(),
		"admitted", c.admitted.Load(),
		"dropped", c.dropped.Load(),
		"failures", c.failures.Load(),
	)
	return ctx.Err()
}

// Close stops the pipeline. Frames offered afterwards are released and dropped.
func (c *Controller) Close() error {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.done)
	}
	return nil
}

func (c *Controller) worker(ctx context.Context) {
	defer close(c.results)

	// In-flight work is never cancelled.
	workCtx := context.WithoutCancel(ctx)

	for {
		select {
		case t := <-c.tasks:
			c.results <- c.process(workCtx, t)
		case fn := <-c.control:
			if cfg, ok := c.detector.(detection.Configurable); ok {
				fn(cfg)
			}
		case <-ctx.Done():
			c.finishPending(workCtx)
			return
		case <-c.done:
			c.finishPending(workCtx)
			return
		}
	}
}

// finishPending processes a task that was handed over but not yet picked up.
func (c *Controller) finishPending(ctx context.Context) {
	select {
	case t := <-c.tasks:
		c.results <- c.process(ctx, t)
	default:
	}
}

func (c *Controller) process(ctx context.Context, t task) (res Result) {
	res = Result{FrameTimestamp: t.ts, Mode: t.mode}
	start := c.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("pipeline: panic in %s path: %v", t.mode, r)
		}
		res.Processing = c.clock.Since(start)
	}()

	switch t.mode {
	case ModeTextExtraction:
		c.extractText(ctx, t, &res)
	default:
		c.detect(ctx, t, &res)
	}
	return res
}

func (c *Controller) detect(ctx context.Context, t task, res *Result) {
	draw.Draw(c.crop, c.crop.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.BiLinear.Transform(c.crop, t.frameToCrop.Aff3(), t.frame, t.frame.Bounds(), draw.Src, nil)

	dets, err := c.detector.Recognize(ctx, c.crop)
	if err != nil {
		res.Err = err
		return
	}

	kept := detection.Filter(dets, c.cfg.MinConfidence)
	if c.cfg.Debug {
		c.storeDebugCrop(kept)
	}

	res.Detections = make([]detection.Ranged, 0, len(kept))
	for _, d := range kept {
		d.Box = t.cropToFrame.MapRect(d.Box)
		res.Detections = append(res.Detections, detection.Ranged{
			Detection: d,
			Distance:  c.estimator.Estimate(d.Box.Width(), d.Box.Height(), d.Label, t.frame.Rect.Dx()),
		})
	}
	if nearest, ok := detection.Nearest(res.Detections); ok {
		res.Nearest = &nearest
	}
}

func (c *Controller) extractText(ctx context.Context, t task, res *Result) {
	if c.ocr == nil {
		res.Err = ErrNoRecognizer
		return
	}
	out, err := c.ocr.Process(ctx, t.frame)
	if err != nil {
		res.Err = err
		return
	}
	res.Text = out.Text
}

// completions applies results in the order the worker produced them.
func (c *Controller) completions() {
	for res := range c.results {
		c.apply(res)
	}
}

func (c *Controller) apply(res Result) {
	defer c.inFlight.Store(false)

	c.lastProcessing.Store(int64(res.Processing))

	if res.Err != nil {
		c.failures.Add(1)
		c.logger.Warn("frame processing failed",
			"frame", res.FrameTimestamp,
			"mode", res.Mode.String(),
			"error", res.Err,
		)
		c.notify(res)
		return
	}
	c.completed.Add(1)

	switch res.Mode {
	case ModeTextExtraction:
		if res.Text != "" && c.gate.Allow(c.cfg.OCRSpeechGap) {
			c.announce(res.Text)
		}
	default:
		obs := make([]tracker.Observation, len(res.Detections))
		for i, d := range res.Detections {
			obs[i] = tracker.Observation{
				Label:      d.Label,
				Confidence: d.Confidence,
				Box:        d.Box,
				Distance:   d.Distance,
			}
		}
		c.tracker.Track(obs, res.FrameTimestamp)
		c.overlay.Invalidate()

		if res.Nearest != nil && c.gate.Allow(c.cfg.DetectionSpeechGap) {
			c.announce(speech.DetectionMessage(res.Nearest.Label, res.Nearest.Distance))
		}

		c.logger.Debug("frame processed",
			"frame", res.FrameTimestamp,
			"detections", len(res.Detections),
			"processing_ms", res.Processing.Milliseconds(),
		)
	}
	c.notify(res)
}

func (c *Controller) announce(text string) {
	c.announcements.Add(1)
	c.speaker.Speak(text)
}

func (c *Controller) notify(res Result) {
	if c.observer != nil {
		c.observer(res)
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return Mode(c.mode.Load())
}

// SetMode switches mode and returns the previous one. A frame already in
// flight finishes in the mode it was admitted with.
func (c *Controller) SetMode(m Mode) Mode {
	prev := Mode(c.mode.Swap(int32(m)))
	if prev != m {
		c.logger.Info("mode changed", "from", prev.String(), "to", m.String())
	}
	return prev
}

// SetAccelerated asks the detector to switch its accelerated delegate.
// The change runs on the worker between frames.
func (c *Controller) SetAccelerated(enabled bool) {
	c.submitControl("accelerated", func(d detection.Configurable) { d.SetAccelerated(enabled) })
}

// SetNumThreads asks the detector to change its thread count.
// The change runs on the worker between frames.
func (c *Controller) SetNumThreads(n int) {
	c.submitControl("threads", func(d detection.Configurable) { d.SetNumThreads(n) })
}

func (c *Controller) submitControl(name string, fn func(detection.Configurable)) {
	select {
	case c.control <- fn:
	default:
		c.logger.Warn("detector control queue full, change dropped", "setting", name)
	}
}

// Stats returns current counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Frames:         c.frames.Load(),
		Admitted:       c.admitted.Load(),
		Dropped:        c.dropped.Load(),
		Completed:      c.completed.Load(),
		Failures:       c.failures.Load(),
		Announcements:  c.announcements.Load(),
		LastProcessing: time.Duration(c.lastProcessing.Load()),
		Mode:           c.Mode(),
		InFlight:       c.inFlight.Load(),
	}
}

// DebugCrop returns the last annotated detector input, or nil when debug
// is off or nothing has been processed yet.
func (c *Controller) DebugCrop() *image.RGBA {
	return c.debugCrop.Load()
}

var debugBoxColor = color.RGBA{R: 255, A: 255}

func (c *Controller) storeDebugCrop(dets []detection.Detection) {
	img := image.NewRGBA(c.crop.Bounds())
	copy(img.Pix, c.crop.Pix)
	for _, d := range dets {
		outline(img, d.Box, debugBoxColor)
	}
	c.debugCrop.Store(img)
}

// outline draws a one-pixel rectangle border clipped to img.
func outline(img *image.RGBA, r geometry.Rect, col color.RGBA) {
	b := image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)).Intersect(img.Bounds())
	if b.Empty() {
		return
	}
	for x := b.Min.X; x < b.Max.X; x++ {
		img.SetRGBA(x, b.Min.Y, col)
		img.SetRGBA(x, b.Max.Y-1, col)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		img.SetRGBA(b.Min.X, y, col)
		img.SetRGBA(b.Max.X-1, y, col)
	}
}
