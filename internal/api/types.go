package api

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Profile mirrors /api/v0/profiles/{username}/.
type Profile struct {
	Username      string       `json:"username"`
	FirstName     string       `json:"first_name" validate:"required"`
	LastName      string       `json:"last_name" validate:"required"`
	PreferredName string       `json:"preferred_name"`
	Email         string       `json:"email,omitempty"`
	EmailOptIn    bool         `json:"email_optin"`
	Country       string       `json:"country" validate:"omitempty,iso3166_1_alpha2"`
	City          string       `json:"city"`
	BirthCountry  string       `json:"birth_country"`
	DateOfBirth   string       `json:"date_of_birth"`
	AboutMe       string       `json:"about_me"`
	FilledOut     bool         `json:"filled_out"`
	AgreedToTerms bool         `json:"agreed_to_terms_of_service"`
	Education     []Education  `json:"education"`
	WorkHistory   []Employment `json:"work_history"`
}

// DisplayName prefers the preferred name over the first name.
func (p Profile) DisplayName() string {
	first := strings.TrimSpace(p.PreferredName)
	if first == "" {
		first = strings.TrimSpace(p.FirstName)
	}
	return strings.TrimSpace(first + " " + strings.TrimSpace(p.LastName))
}

// Education is one education entry of a profile.
type Education struct {
	ID             int64  `json:"id,omitempty"`
	DegreeName     string `json:"degree_name" validate:"required"`
	SchoolName     string `json:"school_name" validate:"required"`
	FieldOfStudy   string `json:"field_of_study"`
	GraduationDate string `json:"graduation_date"`
	OnlineDegree   bool   `json:"online_degree"`
}

// Employment is one work history entry of a profile.
type Employment struct {
	ID          int64  `json:"id,omitempty"`
	CompanyName string `json:"company_name" validate:"required"`
	Position    string `json:"position" validate:"required"`
	Industry    string `json:"industry"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date"`
}

// Start returns the parsed start date.
func (e Employment) Start() time.Time { return ParseDate(e.StartDate) }

// End returns the parsed end date, zero for a current position.
func (e Employment) End() time.Time { return ParseDate(e.EndDate) }

// Dashboard mirrors /api/v0/dashboard/{username}/.
type Dashboard struct {
	Programs       []DashboardProgram `json:"programs"`
	IsEdxDataFresh bool               `json:"is_edx_data_fresh"`
}

// DashboardProgram is the learner's view of one enrolled program.
type DashboardProgram struct {
	ID                       int64             `json:"id"`
	Title                    string            `json:"title"`
	FinancialAidAvailability bool              `json:"financial_aid_availability"`
	FinancialAidUserInfo     *FinancialAidInfo `json:"financial_aid_user_info,omitempty"`
	Courses                  []Course          `json:"courses"`
	PearsonExamStatus        string            `json:"pearson_exam_status,omitempty"`
	GradeAverage             *float64          `json:"grade_average,omitempty"`
}

// Course is one course inside a dashboard program.
type Course struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Position    int         `json:"position_in_program"`
	Runs        []CourseRun `json:"runs"`
}

// CourseRun is one offering of a course.
type CourseRun struct {
	ID            int64    `json:"id"`
	CourseID      string   `json:"course_id"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	StartDate     string   `json:"course_start_date"`
	EndDate       string   `json:"course_end_date"`
	EnrollmentURL string   `json:"enrollment_url"`
	FinalGrade    *float64 `json:"final_grade,omitempty"`
	CurrentGrade  *float64 `json:"current_grade,omitempty"`
}

// FinancialAidInfo carries the financial aid state of a program.
type FinancialAidInfo struct {
	ID                int64   `json:"id,omitempty"`
	HasUserApplied    bool    `json:"has_user_applied"`
	ApplicationStatus string  `json:"application_status"`
	MinPossibleCost   float64 `json:"min_possible_cost"`
	MaxPossibleCost   float64 `json:"max_possible_cost"`
	DateDocumentsSent string  `json:"date_documents_sent,omitempty"`
}

// Program mirrors an entry of /api/v0/programs/.
type Program struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Enrolled     bool   `json:"enrolled"`
	TotalCourses int    `json:"total_courses"`
	ProgramPage  string `json:"programpage_url,omitempty"`
}

// Enrollment mirrors an entry of /api/v0/enrolledprograms/.
type Enrollment struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// EnrollmentRequest is the body of an enrollment POST.
type EnrollmentRequest struct {
	ProgramID int64 `json:"program_id"`
}

// Coupon mirrors an entry of /api/v0/coupons/.
type Coupon struct {
	CouponCode  string `json:"coupon_code"`
	ContentType string `json:"content_type"`
	AmountType  string `json:"amount_type"`
	Amount      string `json:"amount"`
	ProgramID   int64  `json:"program_id"`
	ObjectID    int64  `json:"object_id"`
}

// CouponAttachment is the response of attaching a coupon to the learner.
type CouponAttachment struct {
	Message string `json:"message"`
	Coupon  Coupon `json:"coupon"`
}

// CoursePrice mirrors an entry of /api/v0/course_prices/{username}/.
type CoursePrice struct {
	ProgramID                int64   `json:"program_id"`
	Price                    float64 `json:"price"`
	FinancialAidAvailability bool    `json:"financial_aid_availability"`
	HasFinancialAidRequest   bool    `json:"has_financial_aid_request"`
}

// FinancialAid is both the body of /api/v0/financial_aid_request/ and the
// server answer to it.
type FinancialAid struct {
	ID               int64   `json:"id,omitempty"`
	ProgramID        int64   `json:"program_id" validate:"required"`
	OriginalIncome   float64 `json:"original_income" validate:"gt=0"`
	OriginalCurrency string  `json:"original_currency" validate:"required,iso4217"`
	Status           string  `json:"status,omitempty"`
	IncomeUSD        float64 `json:"income_usd,omitempty"`
}

// Channel is a discussion channel created by staff.
type Channel struct {
	Name        string `json:"name" validate:"required,channel_name"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"public_description" validate:"required"`
	ChannelType string `json:"channel_type"`
	ProgramID   int64  `json:"program_id" validate:"required"`
}

// AutomaticEmail mirrors /api/v0/mail/automatic_email/.
type AutomaticEmail struct {
	ID           int64  `json:"id"`
	Enabled      bool   `json:"enabled"`
	EmailSubject string `json:"email_subject"`
	EmailBody    string `json:"email_body"`
	SenderName   string `json:"sender_name"`
}

// Email is a staff message to a program cohort or a single learner. Exactly
// one of ProgramID and Username selects the recipients.
type Email struct {
	ProgramID     int64          `json:"program_id,omitempty"`
	Username      string         `json:"username,omitempty"`
	EmailSubject  string         `json:"email_subject" validate:"required"`
	EmailBody     string         `json:"email_body" validate:"required"`
	SearchRequest map[string]any `json:"search_request,omitempty"`
	// Errors lists per-recipient failures reported after sending.
	Errors map[string]any `json:"errors,omitempty"`
}

// ParseDate parses a YYYY-MM-DD date, returning zero for empty or
// malformed input.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{dateLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
