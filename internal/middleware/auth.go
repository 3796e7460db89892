package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

const (
	ContextSessionID = "sessionID"
	ContextStaffID   = "staffID"
	ContextUserRole  = "userRole"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

// Claims are carried by both session and staff tokens. Sid is empty on
// staff tokens.
type Claims struct {
	Sid  string `json:"sid,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueSession returns a customer token bound to sessionID.
func (i *TokenIssuer) IssueSession(sessionID string) (string, error) {
	return i.sign(Claims{Sid: sessionID, Role: RoleCustomer}, sessionID)
}

// IssueStaff returns a staff token for staffID.
func (i *TokenIssuer) IssueStaff(staffID string) (string, error) {
	return i.sign(Claims{Role: RoleStaff}, staffID)
}

func (i *TokenIssuer) sign(claims Claims, subject string) (string, error) {
	now := i.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SessionAuth requires a customer token and exposes its session id.
func SessionAuth(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, issuer)
		if !ok {
			return
		}
		if claims.Role != RoleCustomer || claims.Sid == "" {
			httperr.Unauthorized(c, "invalid_token_payload", "Session token required.")
			return
		}

		c.Set(ContextSessionID, claims.Sid)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// StaffAuth requires a staff token.
func StaffAuth(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, issuer)
		if !ok {
			return
		}
		if claims.Role != RoleStaff || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, httperr.HTTPError{
				Code:    "forbidden",
				Kind:    httperr.KindValidation,
				Message: "Staff access required.",
			})
			return
		}

		c.Set(ContextStaffID, claims.Subject)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// bearerClaims reads the Authorization header, or the access_token query
// parameter for EventSource clients that cannot set headers.
func bearerClaims(c *gin.Context, issuer *TokenIssuer) (*Claims, bool) {
	tokenString := c.Query("access_token")

	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httperr.Unauthorized(c, "invalid_authorization_header", "Invalid authorization header.")
			return nil, false
		}
		tokenString = parts[1]
	}

	if tokenString == "" {
		httperr.Unauthorized(c, "missing_authorization_header", "Missing authorization header.")
		return nil, false
	}

	claims, err := issuer.Parse(tokenString)
	if err != nil {
		httperr.Unauthorized(c, "invalid_token", "Invalid or expired token.")
		return nil, false
	}
	return claims, true
}
