package dto

import (
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/service"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ToCommand преобразует запрос в команду полной замены
func (r UpdatePassRequest) ToCommand(key models.PassKey) service.UpdateCommand {
	return service.UpdateCommand{
		Key:            key,
		BarcodeMessage: deref(r.BarcodeMessage),
		BarcodeAltText: deref(r.BarcodeAltText),
		ExpirationDate: deref(r.ExpirationDate),
	}
}

func FromCreateResult(res service.CreateResult) CreatePassResponse {
	return CreatePassResponse{
		PassTypeIdentifier:  res.Record.PassTypeID,
		SerialNumber:        res.Record.SerialNumber,
		AuthenticationToken: res.Record.AuthenticationToken,
		PassURL:             res.PassURL,
	}
}

func FromUpdateResult(res service.UpdateResult) UpdatePassResponse {
	return UpdatePassResponse{
		PassTypeIdentifier: res.Record.PassTypeID,
		SerialNumber:       res.Record.SerialNumber,
	}
}

func FromUpdatedSerials(res service.UpdatedSerialsResult) SerialNumbersResponse {
	return SerialNumbersResponse{SerialNumbers: res.SerialNumbers, LastUpdated: res.LastUpdated}
}
