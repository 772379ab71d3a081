package sequence

import (
	"slices"
	"testing"

	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/internal/session"
)

const frame = 33 * media.Millisecond

type recorder struct {
	msgs []media.QoS
}

func (r *recorder) PostQoS(msg media.QoS) {
	r.msgs = append(r.msgs, msg)
}

func deviceFrame(seq uint64) *media.Frame {
	f := media.NewFrame(nil)
	f.Offset, f.OffsetEnd = seq, seq+1
	return f
}

func TestSynthesizedOffsets(t *testing.T) {
	rec := &recorder{}
	tr := New(rec)
	state := session.New()

	for i := range uint64(3) {
		f := media.NewFrame(nil)
		tr.Assign(state, f, 0, frame)
		if f.Offset != i || f.OffsetEnd != i+1 {
			t.Errorf("frame %d: offsets = (%d, %d), want (%d, %d)", i, f.Offset, f.OffsetEnd, i, i+1)
		}
	}
	if state.Offset != 3 {
		t.Errorf("Offset = %d, want 3", state.Offset)
	}
	if len(rec.msgs) != 0 {
		t.Errorf("unexpected QoS: %v", rec.msgs)
	}
}

func TestLossDetection(t *testing.T) {
	rec := &recorder{}
	tr := New(rec)
	state := session.New()

	var lost []uint64
	for _, seq := range []uint64{1, 2, 3, 6} {
		lost = append(lost, tr.Assign(state, deviceFrame(seq), media.ClockTime(seq)*frame, frame))
	}

	if want := []uint64{0, 0, 0, 2}; !slices.Equal(lost, want) {
		t.Errorf("lost = %v, want %v", lost, want)
	}
	if len(rec.msgs) != 1 {
		t.Fatalf("got %d QoS messages, want 1", len(rec.msgs))
	}
	msg := rec.msgs[0]
	if !msg.Live || msg.LostFrames != 2 || msg.Lost != 2*frame || msg.Timestamp != 6*frame {
		t.Errorf("QoS = %+v", msg)
	}
	if state.Offset != 6 {
		t.Errorf("Offset = %d, want 6", state.Offset)
	}
}

func TestLossWithUnknownDuration(t *testing.T) {
	rec := &recorder{}
	tr := New(rec)
	state := session.New()

	tr.Assign(state, deviceFrame(1), 0, media.None)
	tr.Assign(state, deviceFrame(4), 0, media.None)

	if len(rec.msgs) != 1 || rec.msgs[0].Lost != media.None || rec.msgs[0].LostFrames != 2 {
		t.Errorf("QoS = %+v", rec.msgs)
	}
}

func TestFirstDeviceFrameIsNotALoss(t *testing.T) {
	rec := &recorder{}
	tr := New(rec)
	state := session.New()

	tr.Assign(state, deviceFrame(0), 0, frame)
	tr.Assign(state, deviceFrame(1), 0, frame)
	tr.Assign(state, deviceFrame(2), 0, frame)

	if len(rec.msgs) != 0 {
		t.Errorf("unexpected QoS: %v", rec.msgs)
	}
}

func TestRenegotiationContinuesOffsets(t *testing.T) {
	rec := &recorder{}
	tr := New(rec)
	state := session.New()

	for _, seq := range []uint64{1, 2, 3, 4, 5} {
		tr.Assign(state, deviceFrame(seq), 0, frame)
	}
	n := state.Offset

	tr.FormatChanged(state)

	for i := range uint64(4) {
		f := deviceFrame(i)
		tr.Assign(state, f, 0, frame)
		if want := n + 1 + i; f.Offset != want {
			t.Errorf("native %d mapped to %d, want %d", i, f.Offset, want)
		}
		if f.OffsetEnd != f.Offset+1 {
			t.Errorf("OffsetEnd = %d, want %d", f.OffsetEnd, f.Offset+1)
		}
	}
	if len(rec.msgs) != 0 {
		t.Errorf("spurious QoS after renegotiation: %v", rec.msgs)
	}
}

func TestBackwardsSequenceIsNotALoss(t *testing.T) {
	rec := &recorder{}
	tr := New(rec)
	state := session.New()

	tr.Assign(state, deviceFrame(10), 0, frame)
	if lost := tr.Assign(state, deviceFrame(3), 0, frame); lost != 0 {
		t.Errorf("lost = %d, want 0", lost)
	}
	if len(rec.msgs) != 0 {
		t.Errorf("unexpected QoS: %v", rec.msgs)
	}
	if state.Offset != 3 {
		t.Errorf("Offset = %d, want 3", state.Offset)
	}
}
