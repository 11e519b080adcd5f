package remote

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math"

	"sam-segmenter/internal/mask"
)

// Operation names understood by the inference server.
const (
	opLoad         = "load"
	opUnload       = "unload"
	opPredict      = "predict_point"
	opInitSession  = "init_session"
	opAddPoint     = "add_point"
	opPropagate    = "propagate"
	opCloseSession = "close_session"
)

type request struct {
	ID        uint64 `json:"id"`
	Op        string `json:"op"`
	Predictor string `json:"predictor,omitempty"`
	Session   string `json:"session,omitempty"`

	Config     string `json:"config,omitempty"`
	Checkpoint string `json:"checkpoint,omitempty"`
	Device     string `json:"device,omitempty"`
	Mode       string `json:"mode,omitempty"`

	Image     string `json:"image,omitempty"`
	Point     []int  `json:"point,omitempty"`
	Label     int    `json:"label,omitempty"`
	Multimask bool   `json:"multimask,omitempty"`
	Frame     int    `json:"frame,omitempty"`
	Dir       string `json:"dir,omitempty"`
}

type response struct {
	ID        uint64     `json:"id"`
	OK        bool       `json:"ok"`
	Error     string     `json:"error,omitempty"`
	Predictor string     `json:"predictor,omitempty"`
	Session   string     `json:"session,omitempty"`
	Masks     []wireMask `json:"masks,omitempty"`
	Frame     int        `json:"frame"`
	Done      bool       `json:"done,omitempty"`
}

// wireMask carries little-endian float32 scores, base64 encoded.
type wireMask struct {
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Data   string `json:"data"`
	Logits bool   `json:"logits,omitempty"`
}

func encodeImage(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode prompt image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeMask(w wireMask) (*mask.Mask, error) {
	raw, err := base64.StdEncoding.DecodeString(w.Data)
	if err != nil {
		return nil, fmt.Errorf("decode mask payload: %w", err)
	}
	if len(raw) != w.Rows*w.Cols*4 {
		return nil, fmt.Errorf("mask payload is %d bytes, want %d", len(raw), w.Rows*w.Cols*4)
	}
	values := make([]float32, w.Rows*w.Cols)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return mask.FromFloat32(w.Rows, w.Cols, values, w.Logits)
}

func encodeMask(values []float32, rows, cols int, logits bool) wireMask {
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return wireMask{Rows: rows, Cols: cols, Data: base64.StdEncoding.EncodeToString(raw), Logits: logits}
}

func decodeMasks(ws []wireMask) ([]*mask.Mask, error) {
	out := make([]*mask.Mask, 0, len(ws))
	for i, w := range ws {
		m, err := decodeMask(w)
		if err != nil {
			return nil, fmt.Errorf("mask %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}
