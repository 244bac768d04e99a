package file

import "errors"

var (
	ErrDirectoryNotFound = errors.New("data directory not found")
	// ErrEmptyInput 没有匹配的文件，只作为提示，不中断流程
	ErrEmptyInput = errors.New("no matching input files")
)
