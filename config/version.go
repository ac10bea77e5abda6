package config

// 构建时通过 -ldflags 注入
var (
	Version    = "dev"
	CommitHash = "n/a"
)

// IsProduction 判断是否为生产环境
func IsProduction() bool {
	return Version != "dev" && CommitHash != "n/a"
}

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	return Version == "dev"
}
