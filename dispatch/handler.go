package dispatch

// Void is used as a request type when a handler takes no parameters or
// body, or as a response type when it returns no body (204 No Content).
type Void struct{}
