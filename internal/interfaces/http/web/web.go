// Package web 内嵌单页前端
package web

import (
	_ "embed"
)

//go:embed index.html
var index []byte

// Index 返回页面内容
func Index() []byte {
	return index
}
