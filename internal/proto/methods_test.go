package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func TestIsPublicMethod(t *testing.T) {
	for _, m := range []string{
		AuthService_Register_FullMethodName,
		AuthService_Login_FullMethodName,
		AuthService_RefreshToken_FullMethodName,
		AuthService_Logout_FullMethodName,
	} {
		assert.True(t, IsPublicMethod(m), m)
	}
	assert.False(t, IsPublicMethod(AuthService_WhoAmI_FullMethodName))
	assert.False(t, IsPublicMethod("/other.Service/Register"))
}

func TestDescriptorMatchesMethodNames(t *testing.T) {
	services := File_internal_proto_auth_proto.Services()
	require.Equal(t, 1, services.Len())

	svc := services.Get(0)
	assert.Equal(t, AuthService_ServiceDesc.ServiceName, string(svc.FullName()))

	methods := svc.Methods()
	require.Equal(t, len(AuthService_ServiceDesc.Methods), methods.Len())
	for i, md := range AuthService_ServiceDesc.Methods {
		assert.Equal(t, md.MethodName, string(methods.Get(i).Name()))
	}
}

func TestSessionResponseWireFormat(t *testing.T) {
	in := &SessionResponse{
		AccessToken:  "a",
		RefreshToken: "r",
		User:         &User{Id: "id-1", Email: "a@x.com"},
	}
	raw, err := proto.Marshal(in)
	require.NoError(t, err)

	var out SessionResponse
	require.NoError(t, proto.Unmarshal(raw, &out))
	assert.True(t, proto.Equal(in, &out))
	assert.Equal(t, "a@x.com", out.GetUser().GetEmail())
	assert.Nil(t, (*SessionResponse)(nil).GetUser())
}
