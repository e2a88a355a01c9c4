package util

const (
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 题库导入文件相关常量
const (
	MimeTextPlain   = "text/plain"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedImportExtensions = []string{".txt"}
)
