package cli

import "context"

// Version 语义化版本结构
type Version struct {
	Major      int
	Minor      int
	Patch      int
	PreRelease string
	Build      string
}

// SVNStatus svn 客户端状态信息
type SVNStatus struct {
	Binary     string // 可执行文件
	Installed  bool   // 是否已安装
	Version    string // 版本号，例如 1.14.2
	Revision   string // 构建 revision，例如 r1899510
	MinVersion string // 要求的最低版本
	Supported  bool   // 是否满足最低版本
}

// CommandRunner 命令执行器接口
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
