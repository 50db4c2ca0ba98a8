package repo

const (
	tablePasses        = "passes"
	tableRegistrations = "registrations"
)

const (
	colID              = "id"
	colPassTypeID      = "pass_type_id"
	colSerialNumber    = "serial_number"
	colAuthToken       = "authentication_token"
	colHash            = "hash"
	colCreatedAt       = "created_at"
	colUpdatedAt       = "updated_at"
	colPassID          = "pass_id"
	colDeviceLibraryID = "device_library_id"
	colPushToken       = "push_token"
)

const passColumns = colID + `, ` + colPassTypeID + `, ` + colSerialNumber + `, ` + colAuthToken + `, ` +
	colHash + `, ` + colCreatedAt + `, ` + colUpdatedAt
