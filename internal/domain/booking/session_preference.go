package booking

import "time"

// Period is the part of day the client prefers for the session.
type Period string

const (
	PeriodMorning Period = "MORNING"
	PeriodEvening Period = "EVENING"
	PeriodCustom  Period = "CUSTOM"
)

// IsValid returns true if the period is recognized.
func (p Period) IsValid() bool {
	switch p {
	case PeriodMorning, PeriodEvening, PeriodCustom:
		return true
	}
	return false
}

// SessionMode is how the session is held.
type SessionMode string

const (
	ModeOnline  SessionMode = "ONLINE"
	ModeOffline SessionMode = "OFFLINE"
)

// IsValid returns true if the mode is recognized.
func (m SessionMode) IsValid() bool {
	return m == ModeOnline || m == ModeOffline
}

// PaymentMode is how the client pays for the session.
type PaymentMode string

const (
	PaymentOnline  PaymentMode = "ONLINE"
	PaymentOffline PaymentMode = "OFFLINE"
)

// IsValid returns true if the payment mode is recognized.
func (m PaymentMode) IsValid() bool {
	return m == PaymentOnline || m == PaymentOffline
}

// Gender as self-reported on the intake form.
type Gender string

const (
	GenderMale           Gender = "MALE"
	GenderFemale         Gender = "FEMALE"
	GenderOther          Gender = "OTHER"
	GenderPreferNotToSay Gender = "PREFER_NOT_TO_SAY"
)

// IsValid returns true if the gender value is recognized.
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderPreferNotToSay:
		return true
	}
	return false
}

// CancelActor records who cancelled a booking.
type CancelActor string

const (
	CancelledByUser  CancelActor = "USER"
	CancelledByAdmin CancelActor = "ADMIN"
)

// SessionPreference holds the client's requested session slot. The admin may
// assign a concrete slot independent of these values.
type SessionPreference struct {
	Date      time.Time   `json:"date"`
	Period    Period      `json:"period"`
	TimeStart *string     `json:"time_start,omitempty"`
	TimeEnd   *string     `json:"time_end,omitempty"`
	Mode      SessionMode `json:"mode"`
}

// Consent captures the policy acceptances collected with the draft. All four
// must be true before a draft can be created.
type Consent struct {
	Given      bool       `json:"given"`
	Terms      bool       `json:"terms"`
	Privacy    bool       `json:"privacy"`
	Disclaimer bool       `json:"disclaimer"`
	GivenAt    *time.Time `json:"given_at,omitempty"`
}

// Complete returns true when every consent checkbox was accepted.
func (c Consent) Complete() bool {
	return c.Given && c.Terms && c.Privacy && c.Disclaimer
}

// ClientDetails holds the intake identity fields captured on the draft form.
type ClientDetails struct {
	FullName         string `json:"full_name"`
	PhoneNumber      string `json:"phone_number"`
	City             string `json:"city"`
	State            string `json:"state,omitempty"`
	Country          string `json:"country,omitempty"`
	Age              int    `json:"age"`
	Gender           Gender `json:"gender"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
	UserMessage      string `json:"user_message,omitempty"`
}

// TimelineEntry is one step in a booking's append-only status history.
type TimelineEntry struct {
	Status     BookingStatus `json:"status"`
	RecordedAt time.Time     `json:"recorded_at"`
}
