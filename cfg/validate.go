package cfg

import (
	"github.com/go-playground/validator/v10"
)

// validate 校验器实例，内部缓存结构体元数据，可并发使用
var validate = validator.New()
