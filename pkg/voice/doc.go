// Package voice turns recognized speech into pipeline mode changes.
//
// A Recognizer produces one result per Listen call: the list of alternative
// transcriptions for a single utterance. The Listener loops forever,
// restarting the recognizer after every result and every error, and maps
// recognized phrases onto commands:
//
//	"extract text"  switch to text extraction, announce "Text extraction enabled"
//	"stop text"     switch to object detection, announce "Object detection resumed"
//
// Matching is case-insensitive and whole-phrase; the first alternative that
// matches a command wins.
//
// # Recognizers
//
//   - LineRecognizer: one utterance per line of an io.Reader (stdin)
//   - WebSocketRecognizer: JSON transcripts from a streaming speech service
//   - MockRecognizer: scripted results for tests
//
// # Usage
//
//	rec, err := voice.NewRecognizer(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	l := voice.NewListener(rec, controller, speaker, voice.WithConfig(cfg))
//	go l.Run(ctx)
package voice
