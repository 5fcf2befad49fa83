package cli

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var versionRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([^+]+))?(?:\+(.+))?$`)

// ParseVersion 解析版本字符串，缺省的 minor/patch 视为 0
func ParseVersion(versionStr string) (Version, error) {
	versionStr = strings.TrimSpace(versionStr)
	if versionStr == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	m := versionRegex.FindStringSubmatch(versionStr)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version format: %s", versionStr)
	}

	nums := make([]int, 3)
	for i, s := range m[1:4] {
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version component %q: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], PreRelease: m[4], Build: m[5]}, nil
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// Compare 返回 -1 (v < o), 0 (v == o), 1 (v > o)；构建元数据不参与比较
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Patch, o.Patch); c != 0 {
		return c
	}

	// 没有预发布版本的版本高于有预发布版本的
	switch {
	case v.PreRelease == o.PreRelease:
		return 0
	case v.PreRelease == "":
		return 1
	case o.PreRelease == "":
		return -1
	}
	return comparePreRelease(v.PreRelease, o.PreRelease)
}

// CompareVersions 比较两个版本字符串，无法解析时退化为字符串比较
func CompareVersions(v1Str, v2Str string) int {
	v1, err1 := ParseVersion(v1Str)
	v2, err2 := ParseVersion(v2Str)
	if err1 != nil || err2 != nil {
		return strings.Compare(v1Str, v2Str)
	}
	return v1.Compare(v2)
}

// comparePreRelease 逐段比较，数字段按数值比较
func comparePreRelease(pre1, pre2 string) int {
	parts1 := strings.Split(pre1, ".")
	parts2 := strings.Split(pre2, ".")

	for i := 0; i < len(parts1) && i < len(parts2); i++ {
		n1, err1 := strconv.Atoi(parts1[i])
		n2, err2 := strconv.Atoi(parts2[i])

		var c int
		if err1 == nil && err2 == nil {
			c = cmp.Compare(n1, n2)
		} else {
			c = strings.Compare(parts1[i], parts2[i])
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(parts1), len(parts2))
}

// CheckMinVersion 检查当前版本是否满足最低版本要求
func CheckMinVersion(current, minimum string) (bool, error) {
	cur, err := ParseVersion(current)
	if err != nil {
		return false, fmt.Errorf("invalid current version: %w", err)
	}
	min, err := ParseVersion(minimum)
	if err != nil {
		return false, fmt.Errorf("invalid minimum version: %w", err)
	}
	return cur.Compare(min) >= 0, nil
}
