package controllers

import (
	"errors"
	"time"

	"lingua/backend/config"
	"lingua/backend/models"
	"lingua/backend/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAuthController(db *gorm.DB, cfg *config.Config) *AuthController {
	return &AuthController{DB: db, Cfg: cfg}
}

// Register godoc
// @Summary Register a new user
// @Description Creates a new user account, optionally unlocking a course by access code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Registration data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input struct {
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		AccessCode string `json:"access_code"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Username == "" || input.Email == "" || input.Password == "" {
		return utils.BadRequest(c, "Username, email and password are required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
	}

	if err := ac.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.BadRequest(c, "Username or email already taken")
		}
		return utils.InternalServerError(c, "Could not create user")
	}

	// Код доступа при регистрации сразу открывает курс
	unlocked := ""
	if input.AccessCode != "" {
		courseCode, err := redeemAccessCode(ac.DB, user.ID, input.AccessCode)
		if err != nil {
			return utils.BadRequest(c, err.Error())
		}
		unlocked = courseCode
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
		"unlocked_course": unlocked,
	})
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := ac.DB.Where("username = ?", input.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	ac.DB.Create(&models.LoginHistory{
		UserID:    user.ID,
		LoginTime: time.Now(),
	})

	// Вход тоже считается активностью для серии занятий
	ac.DB.Create(&models.AccessLog{
		UserID:     user.ID,
		Action:     "login",
		ClientMeta: c.Get("User-Agent"),
		AccessedAt: time.Now(),
	})

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// redeemAccessCode помечает код использованным и открывает его курс
func redeemAccessCode(db *gorm.DB, userID uint, code string) (string, error) {
	var accessCode models.AccessCode
	if err := db.Where("code = ?", code).First(&accessCode).Error; err != nil {
		return "", errors.New("invalid access code")
	}
	if accessCode.RedeemedBy != 0 {
		return "", errors.New("access code already redeemed")
	}

	now := time.Now()
	accessCode.RedeemedBy = userID
	accessCode.RedeemedAt = &now
	if err := db.Save(&accessCode).Error; err != nil {
		return "", errors.New("could not redeem access code")
	}

	unlock := models.CourseUnlock{
		UserID:     userID,
		CourseCode: accessCode.CourseCode,
		UnlockedAt: now,
	}
	if err := db.Where("user_id = ? AND course_code = ?", userID, accessCode.CourseCode).
		FirstOrCreate(&unlock).Error; err != nil {
		return "", errors.New("could not unlock course")
	}

	return accessCode.CourseCode, nil
}
