// Package invitecode 生成人工转述友好的邀请码。
package invitecode

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"
)

const (
	// Alphabet 32 个符号：大写字母与数字，去掉易混淆的 O/0/I/1
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// Length 邀请码长度
	Length = 6
)

// Generator 邀请码生成器
type Generator struct {
	rand io.Reader
}

// NewGenerator 创建使用 crypto/rand 的生成器
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewGeneratorWithReader 使用指定随机源创建生成器（测试用）
func NewGeneratorWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate 从字母表中均匀抽取 Length 个字符
func (g *Generator) Generate() (string, error) {
	size := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(g.rand, size)
		if err != nil {
			return "", err
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Normalize 去除首尾空白并转为大写
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// WellFormed 判断规范化后的邀请码长度是否合法
func WellFormed(code string) bool {
	return len(code) == Length
}
