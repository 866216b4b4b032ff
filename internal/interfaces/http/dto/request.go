// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// BindSessionID 从 URI 绑定会话 ID
func BindSessionID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("sid"))
}

// BindStoryID 从 URI 绑定记录 ID
func BindStoryID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}

// BindNewestFirst 读取 ?order=desc，其它值均视为创建顺序
func BindNewestFirst(c *gin.Context) bool {
	return strings.EqualFold(strings.TrimSpace(c.Query("order")), "desc")
}
