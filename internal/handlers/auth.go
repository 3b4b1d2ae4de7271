package handlers

import (
	"net/http"
	"strings"
	"vidlink/internal/db"
	"vidlink/internal/models"
	"vidlink/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"vidlink/internal/services"
)

type AuthHandler struct {
	mailService    *services.MailService
	captchaService *services.CaptchaService
}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{
		mailService:    services.NewMailService(),
		captchaService: services.NewCaptchaService(),
	}
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set("captcha_answer", answer)
	session.Save()
	Render(c, http.StatusOK, "auth/register.html", gin.H{"Captcha": question})
}

// createUser 创建新用户的通用函数
func (h *AuthHandler) createUser(username, email, password string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Avatar:   utils.GetRandomEmoji(), // 随机 emoji 头像
	}

	if err := db.DB.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (h *AuthHandler) Register(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	email := c.PostForm("email")
	password := c.PostForm("password")
	captchaInput := c.PostForm("captcha")

	// Validate Captcha
	session := sessions.Default(c)
	expectedAnswer, ok := session.Get("captcha_answer").(int)
	if !ok || utils.StringToInt(captchaInput) != expectedAnswer {
		question, answer := h.captchaService.GenerateMathProblem()
		session.Set("captcha_answer", answer)
		session.Save()
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{"Error": "验证码错误", "Captcha": question})
		return
	}
	// Clear captcha after use
	session.Delete("captcha_answer")
	session.Save()

	if username == "" || !strings.Contains(email, "@") {
		question, answer := h.captchaService.GenerateMathProblem()
		session.Set("captcha_answer", answer)
		session.Save()
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{"Error": "用户名或邮箱格式不正确", "Captcha": question})
		return
	}

	if len(password) < 6 {
		question, answer := h.captchaService.GenerateMathProblem()
		session.Set("captcha_answer", answer)
		session.Save()
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{"Error": "密码至少6位", "Captcha": question})
		return
	}

	user, err := h.createUser(username, email, password)
	if err != nil {
		question, answer := h.captchaService.GenerateMathProblem()
		session.Set("captcha_answer", answer)
		session.Save()
		Render(c, http.StatusConflict, "auth/register.html", gin.H{"Error": "用户名或邮箱已注册", "Captcha": question})
		return
	}

	h.mailService.SendWelcomeEmail(email, user.Username)

	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/u/"+user.Username)
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	var user models.User
	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Error": "邮箱或密码错误"})
		return
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Error": "邮箱或密码错误"})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}

// RefreshCaptcha 刷新验证码 (AJAX)
func (h *AuthHandler) RefreshCaptcha(c *gin.Context) {
	question, answer := h.captchaService.GenerateMathProblem()

	session := sessions.Default(c)
	session.Set("captcha_answer", answer)
	session.Save()

	c.JSON(http.StatusOK, gin.H{"captcha": question})
}
