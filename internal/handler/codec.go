package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/pkg/httpmiddleware"
)

// maxBodySize bounds request payloads.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	httpmiddleware.WriteError(w, status, msg)
}

// readObject decodes a JSON object body, calling field for every key.
func readObject(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := jx.DecodeBytes(body).Obj(field); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

// decodeDecimal accepts JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(string(n))
	default:
		return decimal.Decimal{}, errors.New("expected number")
	}
}

func encodeMoney(e *jx.Encoder, name string, v decimal.Decimal) {
	e.FieldStart(name)
	e.Raw([]byte(v.StringFixed(2)))
}

func encodeStr(e *jx.Encoder, name, v string) {
	e.FieldStart(name)
	e.Str(v)
}

func encodeBool(e *jx.Encoder, name string, v bool) {
	e.FieldStart(name)
	e.Bool(v)
}

func encodeInt(e *jx.Encoder, name string, v int64) {
	e.FieldStart(name)
	e.Int64(v)
}

func encodeTime(e *jx.Encoder, name string, v time.Time) {
	e.FieldStart(name)
	e.Str(v.UTC().Format(time.RFC3339))
}

func encodeStrings(e *jx.Encoder, name string, values []string) {
	e.FieldStart(name)
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}
