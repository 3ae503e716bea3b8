package types

// ResultStatus is the terminal state of an asynchronous job.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "SUCCESS"
	ResultError   ResultStatus = "ERROR"
)

// Result is the single terminal message a dispatched job delivers to its session.
type Result struct {
	Status   ResultStatus `json:"result"`
	Response string       `json:"response"`
}

func SuccessResult(text string) Result {
	return Result{Status: ResultSuccess, Response: text}
}

func ErrorResult(msg string) Result {
	return Result{Status: ResultError, Response: msg}
}
