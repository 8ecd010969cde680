package audit

// ResourceFor buckets an audit action into the resource it acts on.
func ResourceFor(action string) string {
	switch action {
	case ActionLoginSuccess, ActionLoginFailure, ActionOAuthLogin:
		return "credentials"
	case ActionRefresh, ActionLogout:
		return "session"
	default:
		return "auth"
	}
}
