package engine

import (
	"bytes"
	"errors"
	"testing"
	"time"
	"unsafe"
)

func TestOutputCellCompleteBeforeAwait(t *testing.T) {
	var cell OutputCell
	cell.Arm()

	payload := []byte{1, 2, 3, 4, 5}
	cell.CompleteBytes(unsafe.Pointer(&payload[0]), len(payload), 9000, true)

	out, err := cell.Await(time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if !bytes.Equal(out.Data, payload) {
		t.Errorf("Data = %v, want %v", out.Data, payload)
	}
	if out.Timestamp != 9000 || !out.Keyframe {
		t.Errorf("got ts=%d keyframe=%v", out.Timestamp, out.Keyframe)
	}
}

func TestOutputCellAsyncComplete(t *testing.T) {
	var cell OutputCell
	cell.Arm()

	payload := []byte{0xde, 0xad}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cell.CompleteBytes(unsafe.Pointer(&payload[0]), len(payload), 1, false)
	}()

	out, err := cell.Await(time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if !bytes.Equal(out.Data, payload) {
		t.Errorf("Data = %v, want %v", out.Data, payload)
	}
}

func TestOutputCellTimeout(t *testing.T) {
	var cell OutputCell
	cell.Arm()

	_, err := cell.Await(20 * time.Millisecond)
	if !errors.Is(err, ErrNeedMoreData) {
		t.Fatalf("Await = %v, want ErrNeedMoreData", err)
	}
}

func TestOutputCellLateCompletionDropped(t *testing.T) {
	var cell OutputCell
	cell.Arm()
	if _, err := cell.Await(10 * time.Millisecond); !errors.Is(err, ErrNeedMoreData) {
		t.Fatalf("Await = %v, want ErrNeedMoreData", err)
	}

	// Delivery for the timed-out call arrives after disarm.
	stale := []byte{0xff}
	cell.CompleteBytes(unsafe.Pointer(&stale[0]), len(stale), 42, false)

	// The next armed call must not observe it.
	cell.Arm()
	fresh := []byte{7, 8, 9}
	cell.CompleteBytes(unsafe.Pointer(&fresh[0]), len(fresh), 100, false)

	out, err := cell.Await(time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if !bytes.Equal(out.Data, fresh) {
		t.Errorf("Data = %v, want %v", out.Data, fresh)
	}
	if out.Timestamp != 100 {
		t.Errorf("Timestamp = %d, want 100", out.Timestamp)
	}
}

func TestOutputCellSecondDeliveryDropped(t *testing.T) {
	var cell OutputCell
	cell.Arm()

	first := []byte{1}
	second := []byte{2}
	cell.CompleteBytes(unsafe.Pointer(&first[0]), 1, 10, false)
	cell.CompleteBytes(unsafe.Pointer(&second[0]), 1, 20, false)

	out, err := cell.Await(time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if out.Data[0] != 1 || out.Timestamp != 10 {
		t.Errorf("got data=%v ts=%d, want first delivery", out.Data, out.Timestamp)
	}
}

func TestOutputCellCompleteWithoutArm(t *testing.T) {
	var cell OutputCell

	payload := []byte{1}
	cell.CompleteBytes(unsafe.Pointer(&payload[0]), 1, 0, false) // must not panic

	cell.Arm()
	if _, err := cell.Await(10 * time.Millisecond); !errors.Is(err, ErrNeedMoreData) {
		t.Errorf("unarmed delivery leaked into next capture: %v", err)
	}
}

func TestOutputCellPlanePacking(t *testing.T) {
	const w, h = 4, 4
	const yStride, cStride = 8, 8

	yPlane := make([]byte, yStride*h)
	uPlane := make([]byte, cStride*(h/2))
	vPlane := make([]byte, cStride*(h/2))
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			yPlane[row*yStride+col] = byte(row*w + col)
		}
	}
	for row := 0; row < h/2; row++ {
		for col := 0; col < w/2; col++ {
			uPlane[row*cStride+col] = 0x80
			vPlane[row*cStride+col] = 0x40
		}
	}

	var cell OutputCell
	cell.Arm()
	cell.CompletePlanes(
		unsafe.Pointer(&yPlane[0]), unsafe.Pointer(&uPlane[0]), unsafe.Pointer(&vPlane[0]),
		yStride, cStride, cStride, w, h, 3000,
	)

	out, err := cell.Await(time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if out.Width != w || out.Height != h || out.Timestamp != 3000 {
		t.Fatalf("geometry = %dx%d ts=%d", out.Width, out.Height, out.Timestamp)
	}

	wantLen := w*h + 2*(w/2)*(h/2)
	if len(out.Data) != wantLen {
		t.Fatalf("len(Data) = %d, want %d", len(out.Data), wantLen)
	}
	for i := 0; i < w*h; i++ {
		if out.Data[i] != byte(i) {
			t.Fatalf("Y[%d] = %d, want %d", i, out.Data[i], i)
		}
	}
	for i := w * h; i < w*h+(w/2)*(h/2); i++ {
		if out.Data[i] != 0x80 {
			t.Fatalf("U plane corrupted at %d", i)
		}
	}
	for i := w*h + (w/2)*(h/2); i < wantLen; i++ {
		if out.Data[i] != 0x40 {
			t.Fatalf("V plane corrupted at %d", i)
		}
	}
}

func TestOutputCellReuse(t *testing.T) {
	var cell OutputCell

	for i := 0; i < 10; i++ {
		cell.Arm()
		payload := []byte{byte(i), byte(i + 1)}
		cell.CompleteBytes(unsafe.Pointer(&payload[0]), len(payload), uint32(i), false)

		out, err := cell.Await(time.Second)
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		if out.Data[0] != byte(i) || out.Timestamp != uint32(i) {
			t.Fatalf("round %d: got data=%v ts=%d", i, out.Data, out.Timestamp)
		}
	}
}
