package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitchside/pkg/domain"
)

type TokenServiceSuite struct {
	suite.Suite
	service *Service
	ident   Identity
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceSuite))
}

func (s *TokenServiceSuite) SetupTest() {
	var err error
	s.service, err = NewService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	s.Require().NoError(err)

	s.ident = Identity{
		ID:    uuid.New(),
		Email: "keeper@example.com",
		Role:  domain.RoleCaptain,
	}
}

func (s *TokenServiceSuite) TestNewService() {
	s.Run("missing access secret", func() {
		_, err := NewService("", "refresh", time.Minute, time.Hour)
		s.ErrorIs(err, ErrMissingSecret)
	})

	s.Run("missing refresh secret", func() {
		_, err := NewService("access", "", time.Minute, time.Hour)
		s.ErrorIs(err, ErrMissingSecret)
	})
}

func (s *TokenServiceSuite) TestAccessRoundTrip() {
	signed, err := s.service.IssueAccess(s.ident)
	s.Require().NoError(err)

	claims, err := s.service.VerifyAccess(signed)
	s.Require().NoError(err)
	s.Equal(s.ident.ID.String(), claims.UserID)
	s.Equal(s.ident.Email, claims.Email)
	s.Equal(string(s.ident.Role), claims.Role)
	s.Equal("pitchside", claims.Issuer)
	s.NotEmpty(claims.ID, "every token carries a unique JTI")
}

func (s *TokenServiceSuite) TestRefreshRoundTrip() {
	signed, err := s.service.IssueRefresh(s.ident)
	s.Require().NoError(err)

	claims, err := s.service.VerifyRefresh(signed)
	s.Require().NoError(err)
	s.Equal(s.ident.ID.String(), claims.UserID)
}

func (s *TokenServiceSuite) TestKindsAreNotInterchangeable() {
	access, err := s.service.IssueAccess(s.ident)
	s.Require().NoError(err)
	refresh, err := s.service.IssueRefresh(s.ident)
	s.Require().NoError(err)

	s.Run("refresh secret rejects access token", func() {
		_, err := s.service.VerifyRefresh(access)
		s.ErrorIs(err, ErrInvalidSignature)
	})

	s.Run("access secret rejects refresh token", func() {
		_, err := s.service.VerifyAccess(refresh)
		s.ErrorIs(err, ErrInvalidSignature)
	})
}

func (s *TokenServiceSuite) TestExpiry() {
	signed, err := s.service.IssueAccess(s.ident)
	s.Require().NoError(err)

	// Move the service clock past the access TTL.
	s.service.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	_, err = s.service.VerifyAccess(signed)
	s.ErrorIs(err, ErrExpired)
}

func (s *TokenServiceSuite) TestPairCoversBothLifetimes() {
	pair, err := s.service.IssuePair(s.ident)
	s.Require().NoError(err)
	s.Equal("Bearer", pair.TokenType)
	s.Equal(15*time.Minute, pair.ExpiresIn)

	// Past the access TTL but inside the refresh TTL.
	s.service.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err = s.service.VerifyAccess(pair.AccessToken)
	s.ErrorIs(err, ErrExpired)

	claims, err := s.service.VerifyRefresh(pair.RefreshToken)
	s.NoError(err)
	s.Equal(s.ident.ID.String(), claims.UserID)
}

func (s *TokenServiceSuite) TestMalformed() {
	for _, bad := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.x.y"} {
		_, err := s.service.VerifyAccess(bad)
		s.ErrorIs(err, ErrMalformed, "input %q", bad)
	}
}

func (s *TokenServiceSuite) TestTamperedSignature() {
	signed, err := s.service.IssueAccess(s.ident)
	s.Require().NoError(err)

	other, err := NewService("different-secret", "refresh-secret", time.Minute, time.Hour)
	s.Require().NoError(err)

	_, err = other.VerifyAccess(signed)
	s.ErrorIs(err, ErrInvalidSignature)
}
