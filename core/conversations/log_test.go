package conversations

import "testing"

func TestLogSnapshotIsDetached(t *testing.T) {
	log := &Log{}
	log.Append(Turn{ID: "1", Speaker: SpeakerUser, Text: "xin chào"})

	snapshot := log.Snapshot()
	snapshot[0].Text = "changed"
	log.Append(Turn{ID: "2", Speaker: SpeakerModel, Text: "chào bạn"})

	if got := log.Snapshot()[0].Text; got != "xin chào" {
		t.Fatalf("expected log to keep original text, got %q", got)
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected snapshot to keep its length, got %d", len(snapshot))
	}
	if got := len(log.Snapshot()); got != 2 {
		t.Fatalf("expected 2 turns, got %d", got)
	}
}

func TestLogAppendIgnoresEmptyBatch(t *testing.T) {
	log := &Log{}
	log.Append()

	if snapshot := log.Snapshot(); len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snapshot)
	}
}
