package ports

import "github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"

type Storage interface {
	Write(value models.Value) error
	Read(callback func(value models.Value)) error
	Close() error
}
