package schema

// Target is a navigation destination of the booking view.
type Target string

const (
	TargetSignup    Target = "/signup"
	TargetLogin     Target = "/login"
	TargetDashboard Target = "/dashboard"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)
