package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskprod/backend/internal/interfaces/http/dto"
)

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,max=5"`
	Age      int    `json:"age" binding:"omitempty,min=18"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
	})
	return router
}

func postJSON(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleValidationError_FieldDetails(t *testing.T) {
	rec := postJSON(newValidationRouter(), `{"email":"invalid","username":"toolongname","age":10}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)

	messages := map[string]string{}
	for _, d := range resp.Error.Details {
		messages[d.Field] = d.Message
	}
	assert.Equal(t, "Invalid email format", messages["email"])
	assert.Equal(t, "Must be at most 5 characters", messages["username"])
	assert.Equal(t, "Must be at least 18", messages["age"])
}

func TestHandleValidationError_TypeMismatch(t *testing.T) {
	rec := postJSON(newValidationRouter(), `{"email":"a@x.com","username":"bob","age":"old"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "age", resp.Error.Details[0].Field)
}

func TestHandleValidationError_MalformedBody(t *testing.T) {
	rec := postJSON(newValidationRouter(), `{"email":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "body", resp.Error.Details[0].Field)
}

func TestHandleValidationError_Valid(t *testing.T) {
	rec := postJSON(newValidationRouter(), `{"email":"a@x.com","username":"bob"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
