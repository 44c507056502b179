package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalJSONHash 对JSON兼容值计算规范化哈希
// encoding/json 序列化map时按键名排序，因此键顺序不同的等价输入
// 必然得到相同的哈希值。返回16字节的十六进制字符串（32个字符）。
func CanonicalJSONHash(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		// 无法序列化时退化为 %+v 的文本表示
		data = []byte(fmt.Sprintf("%+v", v))
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}
