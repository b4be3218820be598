package errorx

// Translation message IDs
const (
	MsgBadRequest       = "ErrorBadRequest"
	MsgInternalServer   = "ErrorInternalServer"
	MsgResourceNotFound = "ErrorResourceNotFound"
	MsgConflict         = "ErrorConflict"
	MsgFieldRequired    = "ErrorFieldRequired"
	MsgFieldInvalid     = "ErrorFieldInvalid"

	MsgUnauthorized       = "ErrorUnauthorized"
	MsgInvalidToken       = "ErrorInvalidToken"
	MsgInvalidCredentials = "ErrorInvalidCredentials"
	MsgInvalidOldPassword = "ErrorInvalidOldPassword"
	MsgPasswordTooShort   = "ErrorPasswordTooShort"
	MsgUserDisabled       = "ErrorUserDisabled"

	MsgForbidden          = "ErrorForbidden"
	MsgReadOnlyRole       = "ErrorReadOnlyRole"
	MsgAdminRequired      = "ErrorAdminRequired"
	MsgGrantCreatorDenied = "ErrorGrantCreatorDenied"

	MsgMasterCompanyExists = "ErrorMasterCompanyExists"
	MsgInvalidCompanyType  = "ErrorInvalidCompanyType"
	MsgInvalidSlug         = "ErrorInvalidSlug"
	MsgCompanyHasUsers     = "ErrorCompanyHasUsers"
	MsgCompanyHasData      = "ErrorCompanyHasData"
	MsgCompanyInactive     = "ErrorCompanyInactive"
	MsgMasterMustBeActive  = "ErrorMasterMustBeActive"
	MsgInvalidRole         = "ErrorInvalidRole"
	MsgGrantSelf           = "ErrorGrantSelf"
	MsgInvalidPermission   = "ErrorInvalidPermissionType"

	MsgInvalidPhone          = "ErrorInvalidPhone"
	MsgPhoneExists           = "ErrorPhoneExists"
	MsgInvalidEmail          = "ErrorInvalidEmail"
	MsgInvalidColor          = "ErrorInvalidColor"
	MsgTagNameExists         = "ErrorTagNameExists"
	MsgTagForeignCompany     = "ErrorTagForeignCompany"
	MsgCampaignNameExists    = "ErrorCampaignNameExists"
	MsgCampaignForeign       = "ErrorCampaignForeignCompany"
	MsgCampaignNotDeletable  = "ErrorCampaignNotDeletable"
	MsgContactForeignCompany = "ErrorContactForeignCompany"
	MsgCSVInvalid            = "ErrorCSVInvalid"
	MsgCSVMissingColumns     = "ErrorCSVMissingColumns"

	MsgMessageNotEditable    = "ErrorMessageNotEditable"
	MsgMessageNotDeletable   = "ErrorMessageNotDeletable"
	MsgMessageCannotSend     = "ErrorMessageCannotSend"
	MsgMessageCannotCancel   = "ErrorMessageCannotCancel"
	MsgMessageNotRunning     = "ErrorMessageNotRunning"
	MsgMessageCannotRetry    = "ErrorMessageCannotRetry"
	MsgMessageAlreadyRunning = "ErrorMessageAlreadyRunning"
	MsgMessageNoRecipients   = "ErrorMessageNoRecipients"
	MsgMessageNotDue         = "ErrorMessageNotDue"
	MsgProviderFailed        = "ErrorProviderFailed"
	MsgProviderUnavailable   = "ErrorProviderUnavailable"
)
