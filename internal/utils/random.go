package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
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

var roles = []domain.Role{
	domain.RoleAdmin,
	domain.RoleCoordinator,
	domain.RoleSurgeon,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

var commonSurgeryTypes = []string{
	"CABG", "KNEE", "APPEN", "HIP", "CATARACT", "HERNIA", "GALLBLADDER", "SPINE",
}

var commonEquipmentTypes = []string{
	"C臂机", "体外循环机", "关节镜", "腹腔镜", "显微镜", "超声刀",
}

// 生成一个时间在手术室工作时段内的随机手术
func GenerateRandomSurgery(scheduleDate string, surgeonIDs []int64) *domain.Surgery {
	typ := commonSurgeryTypes[rand.Intn(len(commonSurgeryTypes))]
	duration := int32((rand.Intn(8) + 1) * 30)

	priorities := []domain.SurgeryPriority{
		domain.PriorityEmergency,
		domain.PriorityHigh,
		domain.PriorityMedium,
		domain.PriorityLow,
	}

	surgery := &domain.Surgery{
		PatientName:     GenerateRandomChineseName(),
		SurgeryType:     typ,
		DurationMinutes: duration,
		Priority:        priorities[rand.Intn(len(priorities))],
		SurgeonID:       surgeonIDs[rand.Intn(len(surgeonIDs))],
		ScheduleDate:    scheduleDate,
		EarliestStart:   fmt.Sprintf("%02d:00:00", rand.Intn(8)+8),
	}

	if rand.Intn(3) == 0 {
		surgery.RequiredEquipment = []string{commonEquipmentTypes[rand.Intn(len(commonEquipmentTypes))]}
	}

	return surgery
}

func GenerateRandomOperatingRoom(index int) *domain.OperatingRoom {
	room := &domain.OperatingRoom{
		Name: fmt.Sprintf("手术室 %d", index),
		Windows: []domain.TimeWindow{
			{StartTime: "08:00:00", EndTime: "18:00:00"},
		},
		HourlyCost: float64((rand.Intn(10) + 5) * 100),
	}

	equipmentNum := rand.Intn(3)
	for i := 0; i < equipmentNum; i++ {
		typ := commonEquipmentTypes[rand.Intn(len(commonEquipmentTypes))]
		room.Equipment = append(room.Equipment, typ)
	}

	return room
}

func GenerateRandomSurgeon() *domain.Surgeon {
	return &domain.Surgeon{
		Name: GenerateRandomChineseName(),
		Windows: []domain.TimeWindow{
			{StartTime: "08:00:00", EndTime: "18:00:00"},
		},
		RegularMinutes: 480,
	}
}
