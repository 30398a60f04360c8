package entity

import "errors"

var ErrPluginNotFound = errors.New("plugin not found")
