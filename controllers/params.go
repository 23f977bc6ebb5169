package controllers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/local-talent/utils"
)

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", utils.ErrInvalidInput, name, raw)
	}
	return uint(id), nil
}

// bindJSON decodes the body into dst and reports decoding problems as
// invalid input.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: %s", utils.ErrInvalidInput, err.Error())
	}
	return nil
}
