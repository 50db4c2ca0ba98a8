package dto

type CreatePassResponse struct {
	PassTypeIdentifier  string `json:"passTypeIdentifier"`
	SerialNumber        string `json:"serialNumber"`
	AuthenticationToken string `json:"authenticationToken"`
	PassURL             string `json:"passURL"`
}

// UpdatePassRequest изменяемые поля; отсутствующее и пустое поле очищается
type UpdatePassRequest struct {
	BarcodeMessage *string `json:"barcodeMessage"`
	BarcodeAltText *string `json:"barcodeAltText"`
	ExpirationDate *string `json:"expirationDate"`
}

type UpdatePassResponse struct {
	PassTypeIdentifier string `json:"passTypeIdentifier"`
	SerialNumber       string `json:"serialNumber"`
}

type RegisterDeviceRequest struct {
	PushToken string `json:"pushToken"`
}

type SerialNumbersResponse struct {
	SerialNumbers []string `json:"serialNumbers"`
	LastUpdated   string   `json:"lastUpdated"`
}

type LogRequest struct {
	Logs []string `json:"logs"`
}
