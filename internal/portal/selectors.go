package portal

// Selectors of the rail portal. Everything that depends on the portal's markup
// lives here so layout drift is fixed in one place.
const (
	selCookieAccept = "#cookieAccpetBtn"

	// search form
	selStartStation  = "#BookingS1Form_selectStartStation"
	selDestStation   = "#BookingS1Form_selectDestinationStation"
	selDateInput     = "#toTimeInputField"
	selTimeTable     = "select[name='toTimeTable']"
	selTicketAmount  = "select[name='ticketPanel:rows:0:ticketAmount']"
	selSeatNone      = "#seatRadio0"
	selSeatWindow    = "#seatRadio1"
	selSeatAisle     = "#seatRadio2"
	selMethodTrainNo = "#bookingMethod1"
	selTrainNoInput  = "#toTrainIDInputField"
	selCaptchaImage  = "#BookingS1Form_homeCaptcha_passCode"
	selCaptchaInput  = "#securityCode"
	selCaptchaReload = "#BookingS1Form_homeCaptcha_reCodeLink"
	selSearchSubmit  = "#SubmitButton"
	selFeedError     = "#feedMSG span.error"

	// train selection
	selResultListing = ".result-listing"
	selResultItem    = "label.result-item"
	selSelectSubmit  = "input[name='SubmitButton']"
	selSoldOutModal  = "#soldOutModal.show"
	selSoldOutClose  = "#soldOutModal .btn-confirm"

	// passenger info
	selInfoModalBtn    = "#btn-custom4"
	selIDNumber        = "#idNumber"
	selRealNameID      = "input[id^='passengerDataIdNumber']"
	selMobilePhone     = "#mobilePhone"
	selEmail           = "#email"
	selMemberRadio     = "#memberSystemRadio1"
	selNonMemberRadio  = "#memberSystemRadio3"
	selMemberSameAsID  = "#memberShipCheckBox"
	selMemberNumber    = "#msNumber"
	selAgree           = "input[name='agree']"
	selOrderSubmit     = "#isSubmit"
	selConfirmDetails  = "#btn-custom2"
	selDiscountConfirm = "#SubmitPassButton"

	// confirmation
	selPNR           = ".pnr-code span"
	selPaymentStatus = ".payment-status"
	selTotalPrice    = "[id^='setTrainTotalPriceValue']"
	selTrainCode     = "[id^='setTrainCode']"
	selTrainDep      = "[id^='setTrainDeparture']"
	selTrainArr      = "[id^='setTrainArrival']"
	selTicketDate    = ".ticket-card .date span"
	selSeatLabels    = ".seat-label span"
)

// URL fragments the portal uses for its wicket pages.
const (
	urlTrainSelection = "TrainSelection"
	urlPassengerInfo  = "wicket:interface=:2"
	urlHomeMarker     = "IMINT"
)

// Text fragments of the CAPTCHA error message (zh-TW).
var captchaErrorWords = []string{"檢測碼", "驗證碼", "security code"}

// trainRowSpec scrapes one service per result row.
func trainRowSpec() rowSpec {
	return rowSpec{
		Selector: selResultItem,
		Fields: map[string]string{
			"code":      "input@QueryCode",
			"departure": "input@QueryDeparture",
			"arrival":   "input@QueryArrival",
			"duration":  "input@QueryEstimatedTime",
			"discount":  ".discount p span",
		},
	}
}

func trainRadio(code string) string {
	return "input[QueryCode='" + code + "']"
}
