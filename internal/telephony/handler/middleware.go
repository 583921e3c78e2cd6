package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ValidateTwilioSignature rejects webhook requests that were not signed
// with our Twilio auth token. The signature covers the public URL Twilio
// called plus every POST parameter.
func (h *Handler) ValidateTwilioSignature(c *gin.Context) {
	signature := c.GetHeader("X-Twilio-Signature")
	if signature == "" {
		h.reject(c, "missing webhook signature")
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		h.reject(c, "unparseable webhook form")
		return
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for key := range c.Request.PostForm {
		params[key] = c.Request.PostForm.Get(key)
	}

	url := h.publicBaseURL + c.Request.URL.RequestURI()
	if !h.validator.ValidateSignature(url, params, signature) {
		h.reject(c, "invalid webhook signature")
		return
	}
	c.Next()
}

func (h *Handler) reject(c *gin.Context, reason string) {
	h.logger.Warn(c.Request.Context(), "rejecting webhook: "+reason)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
}
