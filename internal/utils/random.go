package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

// GenerateAccountFromChineseName 从中文姓名生成一个拼音加数字的账号标识
func GenerateAccountFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	account := ""

	for _, p := range pinyinArray {
		length := rand.Intn(len(p)) + 1
		account += p[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		account += string(digits[rand.Intn(len(digits))])
	}

	return account
}

// GenerateRandomLeaveDates 在指定月份内随机挑选 n 天作为休假日期
func GenerateRandomLeaveDates(year int, month time.Month, n int) []string {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	days := make([]int, daysInMonth)
	for i := range days {
		days[i] = i + 1
	}
	rand.Shuffle(len(days), func(i, j int) {
		days[i], days[j] = days[j], days[i]
	})

	if n > daysInMonth {
		n = daysInMonth
	}
	dates := make([]string, 0, n)
	for _, day := range days[:n] {
		dates = append(dates, fmt.Sprintf("%04d-%02d-%02d", year, int(month), day))
	}
	return dates
}

// GenerateRandomStaffMember 生成一名随机员工，用于 seed 演示数据。
// availableNames 是可以随机分给这名员工的岗位名称，departments 是可选科室。
func GenerateRandomStaffMember(availableNames []string, departments []string) *domain.StaffMember {
	name := GenerateRandomChineseName()

	// 随机挑选这名员工可以承担的岗位
	shuffled := append([]string{}, availableNames...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	cnt := rand.Intn(len(shuffled)) + 1

	now := time.Now().UTC()
	leaves := map[domain.LeaveKind][]string{
		domain.LeaveYukyu:   GenerateRandomLeaveDates(now.Year(), now.Month(), rand.Intn(3)),
		domain.LeaveFurikyu: GenerateRandomLeaveDates(now.Year(), now.Month(), rand.Intn(2)),
		domain.LeaveDaikyu:  GenerateRandomLeaveDates(now.Year(), now.Month(), rand.Intn(2)),
	}

	return &domain.StaffMember{
		Name:               name,
		Account:            GenerateAccountFromChineseName(name),
		Experience:         int32(rand.Intn(10) + 1),
		AvailablePositions: shuffled[:cnt],
		Departments:        []string{departments[rand.Intn(len(departments))]},
		Leaves:             leaves,
		SpecialAssignments: make(map[int64][]string),
	}
}
