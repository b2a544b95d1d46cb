package object

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-h5dap/internal/binary"
	"github.com/robert-malhotra/go-h5dap/internal/message"
)

var (
	SignatureV2           = []byte("OHDR")
	continuationSignature = []byte("OCHK")
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
)

// Header is a decoded object header.
type Header struct {
	Version  uint8
	Address  uint64
	Messages []message.Message
}

// Read decodes the object header at address together with its
// continuation blocks. Messages that fail to decode are skipped.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	lead, err := r.At(int64(address)).Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", address, err)
	}

	mr := &messageReader{r: r, seen: make(map[uint64]bool)}
	switch {
	case bytes.Equal(lead, SignatureV2):
		mr.version = 2
		err = mr.readV2(address)
	case lead[0] == 1:
		mr.version = 1
		err = mr.readV1(address)
	default:
		return nil, fmt.Errorf("%w: unknown format at address %d", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, err
	}
	return &Header{Version: mr.version, Address: address, Messages: mr.messages}, nil
}

// GetMessage returns the first message of type typ, or nil.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// GetMessages returns every message of type typ in header order.
func (h *Header) GetMessages(typ message.Type) []message.Message {
	var out []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			out = append(out, msg)
		}
	}
	return out
}

func first[T message.Message](h *Header, typ message.Type) T {
	m, _ := h.GetMessage(typ).(T)
	return m
}

func (h *Header) Dataspace() *message.Dataspace {
	return first[*message.Dataspace](h, message.TypeDataspace)
}

func (h *Header) Datatype() *message.Datatype {
	return first[*message.Datatype](h, message.TypeDatatype)
}

func (h *Header) DataLayout() *message.DataLayout {
	return first[*message.DataLayout](h, message.TypeDataLayout)
}

func (h *Header) FilterPipeline() *message.FilterPipeline {
	return first[*message.FilterPipeline](h, message.TypeFilterPipeline)
}

func (h *Header) FillValue() *message.FillValue {
	return first[*message.FillValue](h, message.TypeFillValue)
}

// IsDataset reports whether the header describes a dataset rather than a
// group.
func (h *Header) IsDataset() bool {
	return h.GetMessage(message.TypeDataspace) != nil
}
