package mqtt

import "testing"

func TestParseSubjectID(t *testing.T) {
	id, err := ParseSubjectID("emofuse/subject/subj-42/observation", "emofuse")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if id != "subj-42" {
		t.Fatalf("subject=%s, want subj-42", id)
	}
}

func TestParseSubjectIDMultiSegmentPrefix(t *testing.T) {
	id, err := ParseSubjectID("lab/emofuse/subject/subj-1/alert", "lab/emofuse")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if id != "subj-1" {
		t.Fatalf("subject=%s, want subj-1", id)
	}
}

func TestParseSubjectIDRejectsWrongPrefix(t *testing.T) {
	if _, err := ParseSubjectID("other/subject/subj-1/observation", "emofuse"); err == nil {
		t.Fatal("want error for mismatched prefix")
	}
}

func TestParseSubjectIDRejectsShortTopic(t *testing.T) {
	if _, err := ParseSubjectID("emofuse/subject", "emofuse"); err == nil {
		t.Fatal("want error for truncated topic")
	}
}

func TestParseSubjectIDRejectsWrongPattern(t *testing.T) {
	if _, err := ParseSubjectID("emofuse/terminal/t-1/observation", "emofuse"); err == nil {
		t.Fatal("want error for non-subject topic")
	}
}

func TestTopicRoundTrip(t *testing.T) {
	topic := TopicObservation("emofuse", "subj-9")
	id, err := ParseSubjectID(topic, "emofuse")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if id != "subj-9" {
		t.Fatalf("subject=%s, want subj-9", id)
	}
}
