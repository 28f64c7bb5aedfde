package service

import "time"

// Recorder receives operational counters. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveCycle(outcome string, elapsed time.Duration, devices, newItems int)
	SourceError(source string)
	WhitelistSubmission(result string)
	IngestReading(result string)
	AnchorsUp(n int)
	ArchiveWrite(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCycle(string, time.Duration, int, int) {}
func (nopRecorder) SourceError(string)                           {}
func (nopRecorder) WhitelistSubmission(string)                   {}
func (nopRecorder) IngestReading(string)                         {}
func (nopRecorder) AnchorsUp(int)                                {}
func (nopRecorder) ArchiveWrite(string)                          {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
