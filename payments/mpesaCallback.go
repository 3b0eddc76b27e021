package payments

import (
	"encoding/json"
	"errors"
	"fmt"
)

type mpesaCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseMpesaCallback decodes the Daraja STK callback body. ResultCode 0 is
// the only success code.
func ParseMpesaCallback(body []byte) (*Result, error) {
	var envelope mpesaCallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode mpesa callback: %w", err)
	}

	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, errors.New("mpesa callback missing CheckoutRequestID")
	}

	result := &Result{
		CorrelationID:     cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		Succeeded:         cb.ResultCode == 0,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		Raw:               body,
	}
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			result.Receipt = fmt.Sprint(item.Value)
		}
	}
	return result, nil
}
