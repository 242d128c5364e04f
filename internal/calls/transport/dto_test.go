package transport

import "testing"

func TestIsAcceptedEventType(t *testing.T) {
	accepted := []string{
		"call-ended",
		"call.ended",
		"call_ended",
		"CALL-ENDED",
		"end-of-call-report",
		"end_of_call_report",
		"End.Of.Call.Report",
		"call ended",
	}
	for _, eventType := range accepted {
		if !IsAcceptedEventType(eventType) {
			t.Errorf("IsAcceptedEventType(%q) = false, want true", eventType)
		}
	}

	rejected := []string{
		"",
		"call-started",
		"transcript-update",
		"speech-update",
		"endofcallreport",
	}
	for _, eventType := range rejected {
		if IsAcceptedEventType(eventType) {
			t.Errorf("IsAcceptedEventType(%q) = true, want false", eventType)
		}
	}
}
