package errors

import "errors"

// ErrTimeConflict 时间冲突：同日已有排期落在冲突窗口内
var ErrTimeConflict = errors.New("该时段与已有答辩排期冲突")
