package models

import (
	"context"
	"fmt"
	"reflect"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	schema.RegisterSerializer("jsoniter", JSONIterSerializer{})
}

// JSONIterSerializer 使用 jsoniter 的 gorm 序列化器，字段标签 `serializer:jsoniter`
type JSONIterSerializer struct{}

// Scan 从数据库值解析
func (JSONIterSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	fieldValue := reflect.New(field.FieldType)

	if dbValue != nil {
		var bytes []byte
		switch v := dbValue.(type) {
		case []byte:
			bytes = v
		case string:
			bytes = []byte(v)
		default:
			return fmt.Errorf("无法解析JSON字段 %s: %#v", field.Name, dbValue)
		}

		if len(bytes) > 0 {
			if err := json.Unmarshal(bytes, fieldValue.Interface()); err != nil {
				return err
			}
		}
	}

	field.ReflectValueOf(ctx, dst).Set(fieldValue.Elem())
	return nil
}

// Value 序列化为数据库值
func (JSONIterSerializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	data, err := json.Marshal(fieldValue)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		if field.TagSettings["NOT NULL"] != "" {
			return "", nil
		}
		return nil, nil
	}
	return string(data), nil
}
