package service

import (
	"strconv"

	"github.com/bytedance/sonic"

	"deriv_bot/internal/models"
)

// Request — исходящее сообщение венью, req_id подставляет Channel.
type Request map[string]any

// Frame — входящий кадр: разобранный конверт + сырые байты.
type Frame struct {
	ReqID   int64
	MsgType string
	Error   *models.RemoteError
	Raw     []byte
}

// Decode разбирает кадр целиком в v.
func (f Frame) Decode(v any) error {
	return sonic.Unmarshal(f.Raw, v)
}

type envelope struct {
	ReqID   *int64 `json:"req_id"`
	MsgType string `json:"msg_type"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseFrame(raw []byte) (Frame, bool, error) {
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return Frame{}, false, err
	}

	f := Frame{MsgType: env.MsgType, Raw: raw}
	if env.Error != nil {
		f.Error = &models.RemoteError{Code: env.Error.Code, Message: env.Error.Message}
	}
	if env.ReqID == nil {
		return f, false, nil
	}
	f.ReqID = *env.ReqID
	return f, true, nil
}

// number — венью отдаёт цены то числом, то строкой.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*n = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = number(v)
	return nil
}
