package daraja

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ResultCodeSuccess         = 0
	ResultCodeCancelledByUser = 1032
)

// Acknowledgement is the fixed body the provider expects back from the callback endpoint.
type Acknowledgement struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var Accepted = Acknowledgement{ResultCode: 0, ResultDesc: "Accepted"}

type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

type Callback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Metadata          []MetadataItem
}

type callbackEnvelope struct {
	Body *struct {
		STKCallback *stkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type stkCallback struct {
	MerchantRequestID string      `json:"MerchantRequestID"`
	CheckoutRequestID string      `json:"CheckoutRequestID"`
	ResultCode        flexibleInt `json:"ResultCode"`
	ResultDesc        string      `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata,omitempty"`
}

// ParseCallback decodes the Body.stkCallback envelope. ResultCode may arrive as a number or a string.
func ParseCallback(raw []byte) (*Callback, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var env callbackEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	if env.Body == nil || env.Body.STKCallback == nil {
		return nil, fmt.Errorf("%w: missing Body.stkCallback", ErrMalformedCallback)
	}

	cb := env.Body.STKCallback
	if strings.TrimSpace(cb.CheckoutRequestID) == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}
	if !cb.ResultCode.set {
		return nil, fmt.Errorf("%w: missing ResultCode", ErrMalformedCallback)
	}

	out := &Callback{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode.value,
		ResultDesc:        cb.ResultDesc,
	}
	if cb.CallbackMetadata != nil {
		out.Metadata = cb.CallbackMetadata.Item
	}
	return out, nil
}

func (c *Callback) Succeeded() bool {
	return c.ResultCode == ResultCodeSuccess
}

func (c *Callback) item(name string) (interface{}, bool) {
	for _, it := range c.Metadata {
		if it.Name == name {
			return it.Value, it.Value != nil
		}
	}
	return nil, false
}

func (c *Callback) itemString(name string) string {
	v, ok := c.item(name)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return fmt.Sprint(v)
}

func (c *Callback) ReceiptNumber() string {
	return c.itemString("MpesaReceiptNumber")
}

func (c *Callback) PhoneNumber() string {
	return c.itemString("PhoneNumber")
}

func (c *Callback) Amount() (decimal.Decimal, bool) {
	s := c.itemString("Amount")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Envelope renders the callback in the provider's wire shape.
func (c *Callback) Envelope() ([]byte, error) {
	type metadata struct {
		Item []MetadataItem `json:"Item"`
	}
	type body struct {
		MerchantRequestID string    `json:"MerchantRequestID"`
		CheckoutRequestID string    `json:"CheckoutRequestID"`
		ResultCode        int       `json:"ResultCode"`
		ResultDesc        string    `json:"ResultDesc"`
		CallbackMetadata  *metadata `json:"CallbackMetadata,omitempty"`
	}

	b := body{
		MerchantRequestID: c.MerchantRequestID,
		CheckoutRequestID: c.CheckoutRequestID,
		ResultCode:        c.ResultCode,
		ResultDesc:        c.ResultDesc,
	}
	if len(c.Metadata) > 0 {
		b.CallbackMetadata = &metadata{Item: c.Metadata}
	}

	return json.Marshal(map[string]interface{}{
		"Body": map[string]interface{}{"stkCallback": b},
	})
}

// flexibleInt accepts 0, "0" and null.
type flexibleInt struct {
	value int
	set   bool
}

func (f *flexibleInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected integer, got %s", b)
	}
	f.value, f.set = n, true
	return nil
}
