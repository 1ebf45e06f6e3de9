package protocol

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestDecoder() (*Decoder, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	return NewDecoder(WithClock(clock.Now)), clock
}

// feedAll feeds every byte and collects records and errors in order
func feedAll(d *Decoder, data []byte) ([]*LogRecord, []error) {
	var records []*LogRecord
	var errs []error
	for _, b := range data {
		rec, err := d.Feed(b)
		if rec != nil {
			records = append(records, rec)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return records, errs
}

func TestDecoderLogInit(t *testing.T) {
	d, _ := newTestDecoder()

	frame := []byte{0x00, 0x00, 0x04, 'i', 'n', 'i', 't', 0x00, 0x00, 0x00, 0x00}
	records, errs := feedAll(d, frame)

	if len(errs) != 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Tag != "init" {
		t.Errorf("Expected tag 'init', got '%s'", rec.Tag)
	}
	if len(rec.Data) != 0 {
		t.Errorf("Expected empty data, got %v", rec.Data)
	}
	if rec.ModuleName != "LOG" || rec.StatusLabel != "LOG_INFO_OK" || rec.Band != BandInfo {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if d.State() != StateAwaitHeader || d.Pending() != 0 {
		t.Errorf("Expected idle AWAIT_HEADER after frame, got %s with %d pending", d.State(), d.Pending())
	}
}

func TestDecoderStates(t *testing.T) {
	d, _ := newTestDecoder()
	frame, _ := EncodeLogFrame(ModuleCmd, 43, "q", []byte{9, 8})

	expected := []State{
		StateAwaitHeader, // module
		StateAwaitHeader, // status
		StateAwaitTag,    // tag length
		StateAwaitDataLen,
		StateAwaitDataLen,
		StateAwaitDataLen,
		StateAwaitDataLen,
		StateAwaitData,
		StateAwaitData,
		StateAwaitHeader, // complete
	}

	for i, b := range frame {
		rec, err := d.Feed(b)
		if err != nil {
			t.Fatalf("byte %d: unexpected error %v", i, err)
		}
		if d.State() != expected[i] {
			t.Errorf("byte %d: expected state %s, got %s", i, expected[i], d.State())
		}
		if i == len(frame)-1 {
			if rec == nil {
				t.Fatal("Expected a record on the last byte")
			}
			if rec.StatusLabel != "CMD_ERR_QUEUEEMPTY" || rec.Band != BandErr {
				t.Errorf("Unexpected record: %+v", rec)
			}
			if !bytes.Equal(rec.Data, []byte{9, 8}) {
				t.Errorf("Expected data [9 8], got %v", rec.Data)
			}
		} else if rec != nil {
			t.Errorf("byte %d: unexpected early record", i)
		}
	}
}

func TestDecoderExpectedLengthGrows(t *testing.T) {
	d, _ := newTestDecoder()
	frame, _ := EncodeLogFrame(ModuleLog, 0, "ab", []byte{1, 2, 3})

	feedAll(d, frame[:3])
	if d.Expected() != 5 {
		t.Errorf("Expected provisional length 5 after header, got %d", d.Expected())
	}
	feedAll(d, frame[3:9])
	if d.Expected() != len(frame) {
		t.Errorf("Expected total length %d after data_length, got %d", len(frame), d.Expected())
	}
}

func TestDecoderEmptyTagSkipsToDataLen(t *testing.T) {
	d, _ := newTestDecoder()
	feedAll(d, []byte{byte(ModuleStdlib), 0, 0})
	if d.State() != StateAwaitDataLen {
		t.Errorf("Expected AWAIT_DATALEN after zero tag length, got %s", d.State())
	}
}

func TestDecoderDataLengthLittleEndian(t *testing.T) {
	d, _ := newTestDecoder()
	data := make([]byte, 0x0102)
	for i := range data {
		data[i] = byte(i)
	}
	frame, _ := EncodeLogFrame(ModuleLog, 1, "", data)

	records, errs := feedAll(d, frame)
	if len(errs) != 0 || len(records) != 1 {
		t.Fatalf("Expected 1 record and no errors, got %d / %v", len(records), errs)
	}
	if !bytes.Equal(records[0].Data, data) {
		t.Errorf("Data mismatch: got %d bytes", len(records[0].Data))
	}
	if records[0].StatusLabel != "LOG_INFO_UNKNOWN" {
		t.Errorf("Expected LOG_INFO_UNKNOWN fallback, got %s", records[0].StatusLabel)
	}
}

func TestDecoderUnknownModule(t *testing.T) {
	d, _ := newTestDecoder()
	frame, _ := EncodeLogFrame(ModuleID(0x7A), 0, "oops", nil)

	records, errs := feedAll(d, frame)
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
	if len(errs) != 1 {
		t.Fatalf("Expected exactly 1 error, got %d", len(errs))
	}

	var malformed *MalformedFrameError
	if !errors.As(errs[0], &malformed) {
		t.Fatalf("Expected MalformedFrameError, got %T", errs[0])
	}
	if !errors.Is(errs[0], ErrUnknownModule) {
		t.Errorf("Expected error to wrap ErrUnknownModule")
	}
	if malformed.Tag != "oops" {
		t.Errorf("Expected tag 'oops' on error, got %q", malformed.Tag)
	}
	if d.State() != StateAwaitHeader || !d.Idle() {
		t.Errorf("Expected decoder reset, got %s with %d pending", d.State(), d.Pending())
	}

	// Decoding continues with the next frame
	good, _ := EncodeLogFrame(ModuleLog, 0, "ok", nil)
	records, errs = feedAll(d, good)
	if len(records) != 1 || len(errs) != 0 {
		t.Errorf("Expected recovery, got %d records / %v", len(records), errs)
	}
}

func TestDecoderDataTooLarge(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	d := NewDecoder(WithClock(clock.Now), WithMaxDataLen(16))

	header := []byte{0, 0, 0, 17, 0, 0, 0}
	_, errs := feedAll(d, header)
	if len(errs) != 1 || !errors.Is(errs[0], ErrDataTooLarge) {
		t.Fatalf("Expected ErrDataTooLarge, got %v", errs)
	}
	if !d.Idle() {
		t.Errorf("Expected decoder reset after oversized data length")
	}
}

func TestDecoderTimeoutResync(t *testing.T) {
	d, clock := newTestDecoder()

	frame, _ := EncodeLogFrame(ModuleLog, 0, "boot", nil)
	feedAll(d, frame[:2])
	if d.Idle() {
		t.Fatal("Expected a frame in progress")
	}

	clock.Advance(500 * time.Millisecond)
	if err := d.Expire(clock.Now()); err != nil {
		t.Errorf("Expected no timeout before the limit, got %v", err)
	}

	clock.Advance(600 * time.Millisecond)
	err := d.Expire(clock.Now())
	var timeout *FrameTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("Expected FrameTimeoutError, got %v", err)
	}
	if !errors.Is(err, ErrFrameTimeout) {
		t.Errorf("Expected error to wrap ErrFrameTimeout")
	}
	if timeout.Received != 2 {
		t.Errorf("Expected 2 received bytes, got %d", timeout.Received)
	}
	if d.State() != StateAwaitHeader || !d.Idle() {
		t.Errorf("Expected reset after timeout, got %s", d.State())
	}

	records, errs := feedAll(d, frame)
	if len(errs) != 0 || len(records) != 1 {
		t.Fatalf("Expected clean decode after resync, got %d records / %v", len(records), errs)
	}
	if records[0].Tag != "boot" {
		t.Errorf("Expected tag 'boot', got %q", records[0].Tag)
	}
}

func TestDecoderTimeoutMeasuredFromFirstByte(t *testing.T) {
	d, clock := newTestDecoder()
	frame, _ := EncodeLogFrame(ModuleLog, 0, "slow", nil)

	// Bytes keep trickling in, but the frame as a whole is too slow
	for _, b := range frame[:6] {
		d.Feed(b)
		clock.Advance(300 * time.Millisecond)
	}
	if err := d.Expire(clock.Now()); err == nil {
		t.Error("Expected timeout measured from the first byte")
	}
}

func TestDecoderExpireIdempotent(t *testing.T) {
	d, clock := newTestDecoder()
	feedAll(d, []byte{0, 0})

	clock.Advance(2 * time.Second)
	if err := d.Expire(clock.Now()); err == nil {
		t.Fatal("Expected first expiry to reset")
	}

	clock.Advance(2 * time.Second)
	if err := d.Expire(clock.Now()); err != nil {
		t.Errorf("Expected second expiry to be a no-op, got %v", err)
	}

	d.Reset()
	d.Reset()
	if d.State() != StateAwaitHeader || d.Pending() != 0 || d.Expected() != LogHeaderSize {
		t.Errorf("Expected clean state after double reset")
	}
}

func TestDecoderBackToBackFrames(t *testing.T) {
	d, _ := newTestDecoder()

	var stream []byte
	tags := []string{"a", "", "ccc"}
	for i, tag := range tags {
		f, _ := EncodeLogFrame(ModuleCmd, StatusCode(i), tag, []byte{byte(i)})
		stream = append(stream, f...)
	}

	records, errs := feedAll(d, stream)
	if len(errs) != 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(records) != len(tags) {
		t.Fatalf("Expected %d records, got %d", len(tags), len(records))
	}
	for i, rec := range records {
		if rec.Tag != tags[i] {
			t.Errorf("Record %d: expected tag %q, got %q", i, tags[i], rec.Tag)
		}
	}
}

func TestLogRecordString(t *testing.T) {
	rec := LogRecord{ModuleName: "CMD", StatusLabel: "CMD_INFO_OK", Tag: "Initialized command module.", Data: []byte{1}}
	expected := "[CMD] CMD_INFO_OK: Initialized command module. (1 data bytes)"
	if rec.String() != expected {
		t.Errorf("Expected %q, got %q", expected, rec.String())
	}
}
