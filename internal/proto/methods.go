package proto

// IsPublicMethod reports whether fullMethod is an authentication endpoint.
// Those never carry an access token and are never retried after a refresh.
func IsPublicMethod(fullMethod string) bool {
	switch fullMethod {
	case AuthService_Register_FullMethodName,
		AuthService_Login_FullMethodName,
		AuthService_RefreshToken_FullMethodName,
		AuthService_Logout_FullMethodName:
		return true
	}
	return false
}
